package auth

// LoginForm is the login screen submission.
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"senha" binding:"required"`
}
