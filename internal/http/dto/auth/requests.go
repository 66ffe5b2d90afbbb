// Package auth contiene los DTOs del flujo de autenticación por wallet.
package auth

import "net/url"

// ChallengeRequest solicita un mensaje de desafío para firmar.
type ChallengeRequest struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// AuthenticateRequest presenta una firma sobre el desafío vigente.
// Sirve tanto para login como para registro.
//
// Los campos trampa (EmailConfirm, Website, PhoneHome, Agreement) están
// ocultos en los formularios del frontend. Un humano nunca los completa.
type AuthenticateRequest struct {
	Address   string `json:"address"`
	Network   string `json:"network"`
	Signature string `json:"signature"`

	EmailConfirm string `json:"email_confirm,omitempty"`
	Website      string `json:"website,omitempty"`
	PhoneHome    string `json:"phone_home,omitempty"`
	Agreement    string `json:"agreement,omitempty"`
}

// TrapFields expone los campos trampa como form values para la detección.
func (r AuthenticateRequest) TrapFields() url.Values {
	return url.Values{
		"email_confirm": {r.EmailConfirm},
		"website":       {r.Website},
		"phone_home":    {r.PhoneHome},
		"agreement":     {r.Agreement},
	}
}
