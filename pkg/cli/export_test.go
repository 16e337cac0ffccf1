package cli

var RunCheck = runCheck
