package session

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidCredentials is returned by providers for a bad email/password pair.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailInUse is returned when an account already exists for the email.
var ErrEmailInUse = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithTextCode("EMAIL_IN_USE").
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is returned when a password fails the provider's policy.
var ErrWeakPassword = goerrors.New("password does not meet minimum requirements", goerrors.CategoryBadInput).
	WithTextCode("WEAK_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrProfileNotFound is returned when no document exists for a uid. The
// Controller recovers from it by collapsing to anonymous; it never crosses
// the controller boundary.
var ErrProfileNotFound = goerrors.New("profile document not found", goerrors.CategoryNotFound).
	WithTextCode("PROFILE_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrProfileWrite is returned when a profile mutation fails. The live
// Session is left unchanged in that case, stale but consistent.
var ErrProfileWrite = goerrors.New("profile write failed", goerrors.CategoryOperation).
	WithTextCode("PROFILE_WRITE_FAILED")

// ErrPermissionDenied is returned when a displayName update is attempted
// without a matching authenticated principal. No store is touched.
var ErrPermissionDenied = goerrors.New("caller is not the authenticated principal", goerrors.CategoryAuthz).
	WithTextCode("PERMISSION_DENIED").
	WithCode(goerrors.CodeForbidden)

// ErrUIDMismatch signals a data-integrity fault: the identity and the stored
// document disagree on the uid. It is reported, never silently resolved.
var ErrUIDMismatch = goerrors.New("identity and profile document uid mismatch", goerrors.CategoryConflict).
	WithTextCode("UID_MISMATCH").
	WithCode(goerrors.CodeConflict)

// IsAuthError reports whether err is a credential-type failure meant to be
// shown to the user verbatim (bad credentials, email in use, weak password).
func IsAuthError(err error) bool {
	var ge *goerrors.Error
	if !goerrors.As(err, &ge) {
		return false
	}
	switch ge.Category {
	case goerrors.CategoryAuth, goerrors.CategoryConflict, goerrors.CategoryBadInput:
		return true
	}
	return false
}

// IsProfileNotFound reports whether err signals a missing profile document.
func IsProfileNotFound(err error) bool {
	if goerrors.Is(err, ErrProfileNotFound) {
		return true
	}
	return goerrors.IsNotFound(err)
}

// IsPermissionDenied reports whether err is a principal mismatch.
func IsPermissionDenied(err error) bool {
	return goerrors.Is(err, ErrPermissionDenied)
}

// IsProfileWriteError reports whether err came from a failed store or
// provider write during a profile update.
func IsProfileWriteError(err error) bool {
	if goerrors.Is(err, ErrProfileWrite) {
		return true
	}
	var ge *goerrors.Error
	return goerrors.As(err, &ge) && ge.TextCode == ErrProfileWrite.TextCode
}
