package adapthttp

import (
	"net/http"

	"bpmnstudio/internal/app"
)

func (s *Server) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.AccountInfo(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "", envelope{"user": user})
}

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	enrollment, err := s.auth.TwoFactorSetup(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "", envelope{
		"secret":     enrollment.Secret,
		"otpauthUrl": enrollment.URL,
		"qrCodeUrl":  enrollment.QRCodeURL,
	})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	p := paramsFrom(r.Context())
	err := s.auth.UpdateAccount(r.Context(), userIDFrom(r.Context()), app.AccountUpdate{
		CurrentPassword: p.str("current_password"),
		Username:        p.ptr("username"),
		Password:        p.ptr("password"),
		Enable2FA:       p.boolPtr("enable2FA"),
		OTPVerify:       p.str("otpVerify"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "account updated", nil)
}
