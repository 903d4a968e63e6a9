package cmd

import "testing"

func TestApproveCmd_Registered(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "approve" {
			found = true
			break
		}
	}
	if !found {
		t.Error("approve command not registered with rootCmd")
	}
}

func TestApproveCmd_NoArgsError(t *testing.T) {
	approvePassphrase = "whatever"
	defer func() { approvePassphrase = "" }()

	if err := runApprove(approveCmd, nil); err == nil {
		t.Error("runApprove(nil args) should return error")
	}
}

func TestApproveCmd_MissingPassphraseError(t *testing.T) {
	approvePassphrase = ""

	if err := runApprove(approveCmd, []string{"echo", "hi"}); err == nil {
		t.Error("runApprove with no --passphrase should return error")
	}
}
