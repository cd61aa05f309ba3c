package dto

import (
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/service"
)

// UserRequest is the body of account creation and profile updates.
type UserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

// ToInput converts the request into service input.
func (r *UserRequest) ToInput() service.UserInput {
	return service.UserInput{Email: r.Email, Password: r.Password, Name: r.Name}
}

// UserResponse never exposes the password.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ToUserResponse converts a model.User.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

// TokenRequest is the login body.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a session token.
type TokenResponse struct {
	Token string `json:"token"`
}
