package mailwright

import "testing"

func TestDSNModifyMessageAppendsRetToMailFrom(t *testing.T) {
	d := &DSNExtension{Ret: "HDRS"}
	got := d.ModifyMessage(&MessageContext{}, "MAIL FROM:<alice@example.com>")
	want := "MAIL FROM:<alice@example.com> RET=HDRS"
	if got != want {
		t.Errorf("ModifyMessage() = %q, want %q", got, want)
	}
}

func TestDSNModifyMessageOmitsRetWhenUnset(t *testing.T) {
	d := &DSNExtension{}
	got := d.ModifyMessage(&MessageContext{}, "MAIL FROM:<alice@example.com>")
	want := "MAIL FROM:<alice@example.com>"
	if got != want {
		t.Errorf("ModifyMessage() = %q, want %q", got, want)
	}
}

func TestDSNModifyMessageAppendsNotifyAndORCPT(t *testing.T) {
	d := &DSNExtension{
		Notify: []string{"SUCCESS", "FAILURE"},
		ORCPT:  func(addr string) string { return "rfc822;" + addr },
	}
	got := d.ModifyMessage(&MessageContext{}, "RCPT TO:<bob@example.com>")
	want := "RCPT TO:<bob@example.com> NOTIFY=SUCCESS,FAILURE ORCPT=rfc822;<bob@example.com>"
	if got != want {
		t.Errorf("ModifyMessage() = %q, want %q", got, want)
	}
}

func TestDSNModifyMessageIgnoresUnrelatedLines(t *testing.T) {
	d := &DSNExtension{Ret: "FULL", Notify: []string{"SUCCESS"}}
	got := d.ModifyMessage(&MessageContext{}, "DATA")
	if got != "DATA" {
		t.Errorf("ModifyMessage() = %q, want unchanged %q", got, "DATA")
	}
}

func TestDSNModifyMessageORCPTOmittedWhenEmpty(t *testing.T) {
	d := &DSNExtension{ORCPT: func(addr string) string { return "" }}
	got := d.ModifyMessage(&MessageContext{}, "RCPT TO:<bob@example.com>")
	if got != "RCPT TO:<bob@example.com>" {
		t.Errorf("ModifyMessage() = %q, want unchanged recipient line", got)
	}
}
