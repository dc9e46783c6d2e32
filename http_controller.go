package users

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-users/middleware/jwtware"
	"github.com/google/uuid"
)

// SessionCookieName carries the signed server-side session handle.
const SessionCookieName = "session_id"

type APIControllerRoutes struct {
	SignUp         string
	SignIn         string
	SignOut        string
	AuthUser       string
	User           string
	Email          string
	ChangePassword string
	List           string
}

// APIController exposes the register/login/profile/list flows over fiber.
type APIController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Auther   *Auther
	Sessions *SessionManager
	Config   Config
	Routes   *APIControllerRoutes

	register *RegisterUserHandler
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Routes: &APIControllerRoutes{
			SignUp:         "/signup",
			SignIn:         "/signin",
			SignOut:        "/signout",
			AuthUser:       "/",
			User:           "/",
			Email:          "/email",
			ChangePassword: "/change-password",
			List:           "/list",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.register == nil && c.Repo != nil {
		cost := DefaultHashCost
		if c.Config != nil {
			cost = c.Config.GetHashCost()
		}
		c.register = NewRegisterUserHandler(c.Repo, NewPasswordAuthenticator(cost))
	}

	return c
}

func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Logger = logger
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Repo = repo
		return c
	}
}

func WithAuthenticator(auther *Auther) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Auther = auther
		return c
	}
}

func WithSessionManager(sessions *SessionManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerConfig(cfg Config) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Config = cfg
		return c
	}
}

// RegisterAPIRoutes mounts the auth and user route groups.
func RegisterAPIRoutes(app *fiber.App, c *APIController) {
	protected := c.Protected()

	auth := app.Group("/auth")
	auth.Post(c.Routes.SignUp, c.SignUp)
	auth.Post(c.Routes.SignIn, c.SignIn)
	auth.Get(c.Routes.AuthUser, protected, c.ViewAuthUser)
	auth.Post(c.Routes.SignOut, protected, c.SignOut)

	user := app.Group("/user", protected)
	user.Get(c.Routes.User, c.ViewUser)
	user.Patch(c.Routes.User, c.UpdateName)
	user.Patch(c.Routes.Email, c.UpdateEmail)
	user.Patch(c.Routes.ChangePassword, c.ChangePassword)
	user.Get(c.Routes.List, c.ListUsers)
	user.Delete(c.Routes.User, c.DeleteUser)
}

// Protected guards a route with the bearer strategy: token validation via
// the token service plus a revocation listener that re-checks the subject
// still exists.
func (c *APIController) Protected() fiber.Handler {
	tokenLookup := ""
	authScheme := ""
	contextKey := ""
	if c.Config != nil {
		tokenLookup = c.Config.GetTokenLookup()
		authScheme = c.Config.GetAuthScheme()
		contextKey = c.Config.GetContextKey()
	}

	return jwtware.New(jwtware.Config{
		TokenValidator: tokenValidatorAdapter{validator: c.Auther.TokenService()},
		TokenLookup:    tokenLookup,
		AuthScheme:     authScheme,
		ContextKey:     contextKey,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return WriteError(ctx, c.Logger, c.asAuthError(err))
		},
		ValidationListeners: []jwtware.ValidationListener{
			c.revocationListener,
		},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				ctx = WithClaims(ctx, ac)
				ctx = WithIdentity(ctx, IdentityFromClaims(ac))
			}
			return ctx
		},
	})
}

func (c *APIController) revocationListener(ctx *fiber.Ctx, claims jwtware.AuthClaims) error {
	strategy, err := c.Auther.Strategies().Use(StrategyBearer)
	if err != nil {
		return nil
	}

	bearer, ok := strategy.(*BearerStrategy)
	if !ok {
		return nil
	}

	ac, ok := claims.(AuthClaims)
	if !ok {
		return nil
	}

	return bearer.Revalidate(ctx.UserContext(), ac)
}

func (c *APIController) asAuthError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	if err.Error() == jwtware.ErrJWTMissingOrMalformed.Error() {
		return ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "missing or malformed JWT",
		})
	}

	return ErrInvalidToken
}

type SignUpPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (p SignUpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Email, validation.Required, validation.Length(1, 255), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(7, 255)),
	)
}

// SignUp registers a new account. Duplicate emails conflict; the response
// never carries credential material.
func (c *APIController) SignUp(ctx *fiber.Ctx) error {
	payload := SignUpPayload{}
	if err := ctx.BodyParser(&payload); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "undecodable body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid signup payload").
			WithCode(goerrors.CodeBadRequest))
	}

	user, err := c.register.Execute(ctx.UserContext(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(user.Public())
}

type SignInPayload struct {
	// Username carries the account email
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p SignInPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// SignIn runs the local strategy and responds with a bearer token. When a
// session manager is configured it also starts a cookie session so the
// account can sign out explicitly.
func (c *APIController) SignIn(ctx *fiber.Ctx) error {
	payload := SignInPayload{}
	if err := ctx.BodyParser(&payload); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "undecodable body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid signin payload").
			WithCode(goerrors.CodeBadRequest))
	}

	identity, err := c.Auther.Authenticate(ctx.UserContext(), StrategyLocal, Credentials{
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	token, err := c.Auther.TokenService().Mint(identity, c.tokenTTL())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	if c.Sessions != nil {
		handle, err := c.Sessions.Start(ctx.UserContext(), identity)
		if err != nil {
			c.Logger.Error("failed to start session", "error", err)
		} else {
			c.setSessionCookie(ctx, handle)
		}
	}

	return ctx.JSON(fiber.Map{"access_token": token})
}

// ViewAuthUser re-reads the authenticated account from the store, so a
// valid token for a vanished record comes back not found.
func (c *APIController) ViewAuthUser(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.JSON(fiber.Map{
		"id":         user.ID.String(),
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

// SignOut destroys the server-side session handle. A missing or already
// destroyed handle is an internal error: logout is not best-effort.
func (c *APIController) SignOut(ctx *fiber.Ctx) error {
	if _, ok := IdentityFromContext(ctx.UserContext()); !ok {
		return WriteError(ctx, c.Logger, ErrIdentityNotFound)
	}

	if c.Sessions == nil {
		return WriteError(ctx, c.Logger, ErrSessionNotFound)
	}

	handle := ctx.Cookies(SessionCookieName)
	if err := c.Sessions.Destroy(ctx.UserContext(), handle); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	c.clearSessionCookie(ctx)

	return ctx.JSON(fiber.Map{"message": "User logged out"})
}

// ViewUser returns the full public record for the authenticated account.
func (c *APIController) ViewUser(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.JSON(user.Public())
}

type UpdateNamePayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (p UpdateNamePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 255)),
	)
}

func (c *APIController) UpdateName(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	payload := UpdateNamePayload{}
	if err := ctx.BodyParser(&payload); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "undecodable body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid name payload").
			WithCode(goerrors.CodeBadRequest))
	}

	updated, err := c.Repo.Users().UpdateName(ctx.UserContext(), user.ID, payload.FirstName, payload.LastName)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.JSON(updated.Public())
}

type UpdateEmailPayload struct {
	Email string `json:"email"`
}

func (p UpdateEmailPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(1, 255), is.Email),
	)
}

// UpdateEmail changes the account email and re-mints a token bound to the
// updated identity; the response carries both.
func (c *APIController) UpdateEmail(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	payload := UpdateEmailPayload{}
	if err := ctx.BodyParser(&payload); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "undecodable body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid email payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if existing, err := c.Repo.Users().GetByEmail(ctx.UserContext(), payload.Email); err == nil {
		if existing.ID != user.ID {
			return WriteError(ctx, c.Logger, ErrDuplicateEmail.Clone().WithMetadata(map[string]any{
				"email": payload.Email,
			}))
		}
	} else if !goerrors.IsNotFound(err) {
		return WriteError(ctx, c.Logger, err)
	}

	updated, err := c.Repo.Users().ChangeEmail(ctx.UserContext(), user.ID, payload.Email)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	token, err := c.Auther.TokenService().Mint(updated.Identity(), c.tokenTTL())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	response := fiber.Map{
		"id":           updated.ID.String(),
		"email":        updated.Email,
		"first_name":   updated.FirstName,
		"last_name":    updated.LastName,
		"access_token": token,
	}

	return ctx.JSON(response)
}

type ChangePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (p ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(7, 255)),
	)
}

// ChangePassword verifies the old password before hashing and storing the
// new one. A mismatch leaves the record untouched.
func (c *APIController) ChangePassword(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	payload := ChangePasswordPayload{}
	if err := ctx.BodyParser(&payload); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "undecodable body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, c.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := ComparePasswordAndHash(payload.OldPassword, user.PasswordHash); err != nil {
		return WriteError(ctx, c.Logger, ErrInvalidOldPassword)
	}

	hash, err := HashPasswordCost(payload.NewPassword, c.hashCost())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	if err := c.Repo.Users().ChangePassword(ctx.UserContext(), user.ID, hash); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	return ctx.JSON(fiber.Map{"message": "Password change"})
}

// ListUsers pages through accounts, newest first.
func (c *APIController) ListUsers(ctx *fiber.Ctx) error {
	query, err := ParsePageQuery(ctx.Query("page"), ctx.Query("perpage"))
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	records, err := c.Repo.Users().ListPage(ctx.UserContext(), query.Skip(), query.Take())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	total, err := c.Repo.Users().CountAll(ctx.UserContext())
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	publics := make([]PublicUser, 0, len(records))
	for _, record := range records {
		publics = append(publics, record.Public())
	}

	return ctx.JSON(fiber.Map{
		"meta":  query.Meta(total),
		"users": publics,
	})
}

// DeleteUser removes the authenticated account and tears down its session
// handle when one exists.
func (c *APIController) DeleteUser(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	if err := c.Repo.Users().Remove(ctx.UserContext(), user.ID); err != nil {
		return WriteError(ctx, c.Logger, err)
	}

	if c.Sessions != nil {
		if handle := ctx.Cookies(SessionCookieName); handle != "" {
			if err := c.Sessions.Destroy(ctx.UserContext(), handle); err != nil {
				return WriteError(ctx, c.Logger, err)
			}
			c.clearSessionCookie(ctx)
		}
	}

	return ctx.JSON(fiber.Map{"message": "User deleted"})
}

// currentUser resolves the request identity and re-reads the record, so
// handlers operate on fresh data and vanished accounts surface not found.
func (c *APIController) currentUser(ctx *fiber.Ctx) (*User, error) {
	identity, ok := IdentityFromContext(ctx.UserContext())
	if !ok {
		return nil, ErrIdentityNotFound
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := c.Repo.Users().GetUser(ctx.UserContext(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode("USER_GONE")
		}
		return nil, err
	}

	return user, nil
}

func (c *APIController) tokenTTL() int {
	if c.Config != nil && c.Config.GetTokenTTL() > 0 {
		return c.Config.GetTokenTTL()
	}
	return DefaultTokenTTL
}

func (c *APIController) hashCost() int {
	if c.Config != nil && c.Config.GetHashCost() > 0 {
		return c.Config.GetHashCost()
	}
	return DefaultHashCost
}

func (c *APIController) setSessionCookie(ctx *fiber.Ctx, handle string) {
	ttl := DefaultSessionTTL
	if c.Config != nil && c.Config.GetSessionTTL() > 0 {
		ttl = c.Config.GetSessionTTL()
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    handle,
		Expires:  time.Now().Add(time.Duration(ttl) * time.Second),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (c *APIController) clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// tokenValidatorAdapter bridges the core validator into the middleware
// interface, which returns its own AuthClaims mirror.
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (a tokenValidatorAdapter) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := a.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
