package server

import "github.com/nfrund/goby-messenger/internal/authflow"

func recordFor(name, email, password string) authflow.CredentialRecord {
	return authflow.CredentialRecord{Name: name, Email: email, Password: password}
}
