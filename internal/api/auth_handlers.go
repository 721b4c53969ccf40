package api

import (
	"net/http"
)

// credentials accepts the account id as either "userId" or "identifier".
type credentials struct {
	UserID     string `json:"userId"`
	Identifier string `json:"identifier"`
}

func (c credentials) id() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Identifier
}

type signupRequest struct {
	credentials
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	credentials
	Password string `json:"password"`
}

type loginResponse struct {
	Message      string `json:"message"`
	OTP          string `json:"otp,omitempty"`
	DisplayName  string `json:"displayName"`
	Identifier   string `json:"identifier"`
	UserRecordID string `json:"userRecordId"`
}

type verifyOTPRequest struct {
	credentials
	OTPCode string `json:"otpCode"`
}

type verifyOTPResponse struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	DisplayName  string `json:"displayName"`
	ClientID     string `json:"clientId"`
	RoleID       string `json:"roleId"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

type forgotPasswordRequest struct {
	credentials
}

type forgotPasswordResponse struct {
	Message  string `json:"message"`
	ResetOTP string `json:"resetOtp,omitempty"`
}

type verifyResetOTPRequest struct {
	credentials
	OTPCode string `json:"otpCode"`
}

type verifyResetOTPResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type resetPasswordRequest struct {
	ResetToken      string `json:"resetToken"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.Signup(r.Context(), req.id(), req.Password, req.DisplayName); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse("user created successfully"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.Login(r.Context(), req.id(), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := loginResponse{
		Message:      "OTP sent to your email",
		DisplayName:  res.DisplayName,
		Identifier:   res.Identifier,
		UserRecordID: res.UserRecordID,
	}
	if s.opts.OTPInResponse {
		resp.OTP = res.OTP
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.VerifyOTP(r.Context(), req.id(), req.OTPCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyOTPResponse{
		Message:      "login successful",
		Token:        res.Token,
		DisplayName:  res.DisplayName,
		ClientID:     res.ClientID,
		RoleID:       res.RoleID,
		IsSuperAdmin: res.SuperAdmin,
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	code, err := s.auth.ForgotPassword(r.Context(), req.id())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := forgotPasswordResponse{Message: "OTP sent to your email for password reset"}
	if s.opts.OTPInResponse {
		resp.ResetOTP = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyResetOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.VerifyResetOTP(r.Context(), req.id(), req.OTPCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResetOTPResponse{
		Message:    "OTP verified, you can now reset your password",
		ResetToken: token,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.ResetToken, req.NewPassword, req.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("password reset successfully"))
}
