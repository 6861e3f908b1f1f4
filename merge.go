package session

// Field names used by profile updates and the ownership table.
const (
	FieldUID         = "uid"
	FieldEmail       = "email"
	FieldDisplayName = "displayName"
	FieldPhotoURL    = "photoURL"
	FieldBio         = "bio"
	FieldLocation    = "location"
	FieldWebsite     = "website"
)

// identityOwnedFields is the ownership table for merged views: these fields
// always take the identity value when an identity is present. Everything
// else belongs to the profile document.
var identityOwnedFields = map[string]struct{}{
	FieldUID:         {},
	FieldEmail:       {},
	FieldDisplayName: {},
}

// IdentityOwns reports whether the identity record is authoritative for the
// named field in a merged view.
func IdentityOwns(field string) bool {
	_, ok := identityOwnedFields[field]
	return ok
}

// Merge overlays the identity-owned fields onto a copy of the stored
// document. The document may be nil, in which case a cache-only view is
// synthesized from the identity. A uid disagreement between the two records
// is a data-integrity fault and returns ErrUIDMismatch rather than picking
// a winner.
func Merge(identity *Identity, doc *ProfileDocument) (*ProfileDocument, error) {
	if identity == nil {
		return doc.Clone(), nil
	}

	if doc == nil {
		return &ProfileDocument{
			UID:         identity.UID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		}, nil
	}

	if doc.UID != "" && doc.UID != identity.UID {
		return nil, ErrUIDMismatch.WithMetadata(map[string]any{
			"identity_uid": identity.UID,
			"document_uid": doc.UID,
		})
	}

	merged := doc.Clone()
	merged.UID = identity.UID
	merged.Email = identity.Email
	merged.DisplayName = identity.DisplayName
	return merged, nil
}
