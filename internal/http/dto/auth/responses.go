package auth

// ChallengeResponse entrega el mensaje a firmar por la wallet.
type ChallengeResponse struct {
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expiresIn"` // segundos
}

// SessionResponse entrega el token de sesión tras autenticar.
type SessionResponse struct {
	Token     string `json:"token"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	ExpiresIn int64  `json:"expiresIn"` // segundos de inactividad permitidos
}

// SessionInfoResponse describe la sesión vigente.
type SessionInfoResponse struct {
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// LockedResponse acompaña al error ACCOUNT_LOCKED con el tiempo restante.
type LockedResponse struct {
	RetryAfterSeconds int64 `json:"retryAfterSeconds"`
}
