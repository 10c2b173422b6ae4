package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type AuthController struct {
	users     *store.UserStore
	jwtSecret string
}

func NewAuthController(users *store.UserStore, jwtSecret string) *AuthController {
	return &AuthController{users: users, jwtSecret: jwtSecret}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// Register creates a renter or host account. Admin accounts are provisioned
// out of band, never through this endpoint.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid registration data", err.Error())
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleRenter
	}
	if role != models.RoleRenter && role != models.RoleHost {
		utils.ValidationError(c, "Role must be RENTER or HOST", nil)
		return
	}
	if req.Phone != "" && !utils.ValidatePhoneNumber(req.Phone) {
		utils.ValidationError(c, "Invalid Zambian phone number", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.InternalServerError(c, "Failed to process password", nil)
		return
	}

	user := &models.User{
		Email:     req.Email,
		Password:  string(hash),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     utils.NormalizePhoneNumber(req.Phone),
		Role:      role,
	}
	if err := ac.users.Create(user); err != nil {
		utils.Conflict(c, "Email is already registered", nil)
		return
	}

	utils.LogInfo("User %s registered as %s", user.ID, role)
	utils.Created(c, "Account created", gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and mints a role-claim token.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid login data", err.Error())
		return
	}

	user, err := ac.users.FindByEmail(req.Email)
	if err != nil {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.LogError("Failed login attempt for %s", req.Email)
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if user.IsBlocked {
		utils.Forbidden(c, "Account is blocked")
		return
	}

	token, err := middleware.IssueToken(user, ac.jwtSecret, tokenTTL)
	if err != nil {
		utils.InternalServerError(c, "Failed to issue token", nil)
		return
	}

	utils.LogInfo("User %s logged in", user.ID)
	utils.Success(c, "Login successful", gin.H{"token": token, "user": user})
}
