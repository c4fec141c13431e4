package mailwright

import (
	"encoding/base64"
	"strings"
)

// AuthMechanism names a SASL mechanism the AuthExtension knows how to
// drive as a client.
type AuthMechanism string

const (
	AuthPlain AuthMechanism = "PLAIN"
	AuthLogin AuthMechanism = "LOGIN"
)

// AuthExtension implements AUTH (RFC 4954) as a client: it authenticates
// once, the first time the session reaches ReadyToSend, using Prefer if the
// server advertised it, otherwise AuthPlain, otherwise AuthLogin.
//
// It encodes the client side of the SASL PLAIN (RFC 4616) and LOGIN wire
// formats directly with encoding/base64: the authzid/authcid/password blob
// for PLAIN, and the base64 username and password answers for LOGIN.
type AuthExtension struct {
	BaseExtension

	AuthzID  string
	AuthCID  string
	Password string
	Prefer   AuthMechanism // which mechanism to try first if the server offers both

	serverMechanisms []string
	mechanism        AuthMechanism
	authenticated    bool
	loginStep        int
	sendLine         SendLineFunc
	complete         StageCompleteFunc
}

// NewAuthExtension builds an AUTH extension for the given credentials,
// preferring PLAIN over LOGIN when the server offers both.
func NewAuthExtension(authCID, password string) *AuthExtension {
	return &AuthExtension{AuthCID: authCID, Password: password, Prefer: AuthPlain}
}

func (a *AuthExtension) Reset() {
	a.serverMechanisms = nil
	a.mechanism = ""
	a.authenticated = false
	a.loginStep = 0
}

func (a *AuthExtension) Configure(parameters string) {
	a.serverMechanisms = strings.Fields(parameters)
}

func (a *AuthExtension) supports(want AuthMechanism) bool {
	for _, m := range a.serverMechanisms {
		if strings.EqualFold(m, string(want)) {
			return true
		}
	}
	return false
}

func (a *AuthExtension) IsExtraStageNeededHere(ctx *MessageContext) bool {
	if a.authenticated || ctx.Stage() != ReadyToSend {
		return false
	}
	switch {
	case a.Prefer != "" && a.supports(a.Prefer):
		a.mechanism = a.Prefer
	case a.supports(AuthPlain):
		a.mechanism = AuthPlain
	case a.supports(AuthLogin):
		a.mechanism = AuthLogin
	default:
		return false
	}
	return true
}

func (a *AuthExtension) GoAhead(sendLine SendLineFunc, onStageComplete StageCompleteFunc) {
	a.sendLine = sendLine
	a.complete = onStageComplete

	switch a.mechanism {
	case AuthPlain:
		blob := a.AuthzID + "\x00" + a.AuthCID + "\x00" + a.Password
		sendLine("AUTH PLAIN " + base64.StdEncoding.EncodeToString([]byte(blob)) + "\r\n")
	case AuthLogin:
		a.loginStep = 0
		sendLine("AUTH LOGIN\r\n")
	default:
		onStageComplete(false)
	}
}

// HandleServerReply drives the LOGIN mechanism's two-step challenge or
// resolves PLAIN's single round trip, per RFC 4954's 334-continuation /
// 235-success / anything-else-failure shape.
func (a *AuthExtension) HandleServerReply(ctx *MessageContext, reply ParsedReply) bool {
	if reply.Code == CodeAuthSuccess {
		a.authenticated = true
		a.complete(true)
		return true
	}

	if a.mechanism == AuthLogin && reply.Code == CodeAuthContinue {
		switch a.loginStep {
		case 0:
			a.sendLine(base64.StdEncoding.EncodeToString([]byte(a.AuthCID)) + "\r\n")
			a.loginStep = 1
			return true
		case 1:
			a.sendLine(base64.StdEncoding.EncodeToString([]byte(a.Password)) + "\r\n")
			a.loginStep = 2
			return true
		}
	}

	a.complete(false)
	return true
}

// CodeAuthContinue and CodeAuthSuccess are the RFC 4954 reply codes the
// AUTH sub-stage watches for.
const (
	CodeAuthContinue = 334
	CodeAuthSuccess  = 235
)
