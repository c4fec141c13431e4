package mailwright

import (
	"encoding/base64"
	"testing"
)

func TestAuthIsExtraStageNeededHerePrefersConfiguredMechanism(t *testing.T) {
	a := NewAuthExtension("alice", "secret")
	a.Prefer = AuthLogin
	a.Configure("PLAIN LOGIN")

	ctx := &MessageContext{stage: ReadyToSend}
	if !a.IsExtraStageNeededHere(ctx) {
		t.Fatal("IsExtraStageNeededHere() = false, want true")
	}
	if a.mechanism != AuthLogin {
		t.Errorf("mechanism = %q, want %q", a.mechanism, AuthLogin)
	}
}

func TestAuthIsExtraStageNeededHereFalseOutsideReadyToSend(t *testing.T) {
	a := NewAuthExtension("alice", "secret")
	a.Configure("PLAIN")

	ctx := &MessageContext{stage: Options}
	if a.IsExtraStageNeededHere(ctx) {
		t.Error("IsExtraStageNeededHere() = true outside ReadyToSend")
	}
}

func TestAuthIsExtraStageNeededHereFalseWhenAlreadyAuthenticated(t *testing.T) {
	a := NewAuthExtension("alice", "secret")
	a.Configure("PLAIN")
	a.authenticated = true

	ctx := &MessageContext{stage: ReadyToSend}
	if a.IsExtraStageNeededHere(ctx) {
		t.Error("IsExtraStageNeededHere() = true after authentication already succeeded")
	}
}

func TestAuthIsExtraStageNeededHereFalseWithNoSupportedMechanism(t *testing.T) {
	a := NewAuthExtension("alice", "secret")
	a.Configure("XOAUTH2")

	ctx := &MessageContext{stage: ReadyToSend}
	if a.IsExtraStageNeededHere(ctx) {
		t.Error("IsExtraStageNeededHere() = true with no mechanism the client knows")
	}
}

func TestAuthGoAheadPlainSendsSingleBase64Blob(t *testing.T) {
	a := NewAuthExtension("alice", "s3cr3t")
	a.mechanism = AuthPlain

	var sent []string
	a.GoAhead(func(line string) { sent = append(sent, line) }, func(bool) {})

	if len(sent) != 1 {
		t.Fatalf("sent %d lines, want 1", len(sent))
	}
	want := "AUTH PLAIN " + base64.StdEncoding.EncodeToString([]byte("\x00alice\x00s3cr3t")) + "\r\n"
	if sent[0] != want {
		t.Errorf("sent[0] = %q, want %q", sent[0], want)
	}
}

func TestAuthLoginDrivesTwoStepChallenge(t *testing.T) {
	a := NewAuthExtension("alice", "s3cr3t")
	a.mechanism = AuthLogin

	var sent []string
	a.GoAhead(func(line string) { sent = append(sent, line) }, func(bool) {})
	if len(sent) != 1 || sent[0] != "AUTH LOGIN\r\n" {
		t.Fatalf("sent = %v, want [\"AUTH LOGIN\\r\\n\"]", sent)
	}

	ctx := &MessageContext{}
	if ok := a.HandleServerReply(ctx, ParsedReply{Code: CodeAuthContinue, Last: true}); !ok {
		t.Fatal("HandleServerReply() = false on first continuation")
	}
	if len(sent) != 2 || sent[1] != base64.StdEncoding.EncodeToString([]byte("alice"))+"\r\n" {
		t.Errorf("sent[1] = %q, want base64(alice)", sent[1])
	}

	if ok := a.HandleServerReply(ctx, ParsedReply{Code: CodeAuthContinue, Last: true}); !ok {
		t.Fatal("HandleServerReply() = false on second continuation")
	}
	if len(sent) != 3 || sent[2] != base64.StdEncoding.EncodeToString([]byte("s3cr3t"))+"\r\n" {
		t.Errorf("sent[2] = %q, want base64(s3cr3t)", sent[2])
	}

	var completedWith bool
	var completedCalled bool
	a.complete = func(ok bool) { completedCalled, completedWith = true, ok }
	a.HandleServerReply(ctx, ParsedReply{Code: CodeAuthSuccess, Last: true})
	if !completedCalled || !completedWith {
		t.Error("expected complete(true) on 235 success")
	}
	if !a.authenticated {
		t.Error("authenticated = false after success reply")
	}
}

func TestAuthHandleServerReplyFailureCompletesFalse(t *testing.T) {
	a := NewAuthExtension("alice", "s3cr3t")
	a.mechanism = AuthPlain

	var completedWith bool
	var completedCalled bool
	a.complete = func(ok bool) { completedCalled, completedWith = true, ok }

	ctx := &MessageContext{}
	a.HandleServerReply(ctx, ParsedReply{Code: CodeMailboxUnavail, Last: true})
	if !completedCalled || completedWith {
		t.Error("expected complete(false) on a non-success, non-continuation reply")
	}
}
