package model

import "time"

// Credential identifies a remote host and the account used to reach it.
// It is supplied per request and never persisted.
type Credential struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// TriggerRequest is the input to the trigger endpoint. Descriptor is the
// remote path of the run descriptor placed there by the upload step;
// TargetDir is the directory whose contents seed the isolated workspace.
type TriggerRequest struct {
	Host       string `json:"host"`
	User       string `json:"user"`
	Password   string `json:"password"`
	RunName    string `json:"runName"`
	Descriptor string `json:"descriptor"`
	TargetDir  string `json:"targetDir"`
}

func (r *TriggerRequest) Credential() Credential {
	return Credential{Host: r.Host, User: r.User, Password: r.Password}
}

// LoginRequest carries the credential verified against the remote host
// before a session token is issued.
type LoginRequest struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
