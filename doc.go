// Package mailwright implements the client side of SMTP submission (RFC
// 5321): the line reassembler, the multiline reply parser, the eight-state
// protocol dialog, and the extension dispatch pipeline that lets callers
// hook AUTH, DKIM signing, DSN parameters, SMTPUTF8 normalization, and
// similar auxiliary protocol behavior into the session without touching
// the state machine itself.
//
// A minimal session looks like:
//
//	client := mailwright.NewClient(mailwright.NewTCPTransport(mailwright.TCPConfig{}), mailwright.DefaultClientConfig())
//	if !client.Connect(context.Background(), "mail.example.com", 25).Wait() {
//		return
//	}
//	if !client.ReadyOrBroken().Wait() {
//		return
//	}
//	headers := mailwright.NewMapHeaders([2]string{"From", "<alice@example.com>"}, [2]string{"To", "<bob@example.com>"})
//	accepted := client.SendMail(headers, "Hello, Bob.\r\n").Wait()
//	client.Disconnect()
//
// Apart from TCPTransport, a plain TCP/TLS adapter for the Transport port,
// the package does not implement a socket layer, certificate policy, DNS
// resolution, RFC 5322 header parsing, or pipelining; those are either
// supplied by the caller (Transport, Headers) or available as opt-in
// extensions (ext_mxcheck.go wraps DNS lookups, for example).
package mailwright
