package users

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrNoEmptyPassword rejects empty plaintext before it reaches bcrypt
var ErrNoEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD")

// ErrMismatchedHashAndPassword is the rejection for a failed credential check.
// Unknown identifiers map to the same error on the login path so responses do
// not leak which emails exist.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("PASSWORD_MISMATCH")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("USER_NOT_FOUND")

// ErrInvalidCredentialsInput flags malformed or missing credential fields,
// distinct from a credential mismatch: the caller sent a bad request, not
// bad credentials.
var ErrInvalidCredentialsInput = errors.New("missing or malformed credentials", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("INVALID_CREDENTIALS_INPUT")

// ErrTokenExpired is returned for structurally valid tokens past their expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed covers tokens that do not decode at all
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrTokenSignatureInvalid covers structurally valid tokens whose signature
// does not verify. Distinct from malformed for diagnostics; both are
// rejected identically at the boundary.
var ErrTokenSignatureInvalid = errors.New("token signature is invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_SIGNATURE_INVALID")

// ErrInvalidToken is the generic bearer strategy rejection
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_INVALID")

// ErrInvalidOldPassword rejects a change-password request whose old
// password does not verify. The caller is already authenticated, so this
// is an unprocessable request, not a 401.
var ErrInvalidOldPassword = errors.New("password does not match", errors.CategoryValidation).
	WithTextCode("OLD_PASSWORD_MISMATCH")

// ErrDuplicateEmail signals a registration or email change against an email
// that already belongs to another record
var ErrDuplicateEmail = errors.New("user exists already", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode("EMAIL_TAKEN")

// ErrSessionNotFound is returned when destroying or resolving a session
// handle that does not exist. Logout surfaces it instead of swallowing it.
var ErrSessionNotFound = errors.New("unable to find session", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode("SESSION_NOT_FOUND")

// ErrInvalidPageQuery rejects non-integer pagination parameters
var ErrInvalidPageQuery = errors.New("pagination parameters must be integers", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("INVALID_PAGE_QUERY")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == ErrTokenExpired.TextCode {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable or tampered tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.TextCode == ErrTokenMalformed.TextCode ||
			richErr.TextCode == ErrTokenSignatureInvalid.TextCode {
			return true
		}
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "token signature is invalid") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
