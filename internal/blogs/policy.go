package blogs

import "errors"

var ErrNotOwner = errors.New("unauthorized: not the blog owner")

type Action int

const (
	ActionUpdateFields Action = iota
	ActionUpdateLikes
	ActionAppendComment
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUpdateFields:
		return "update-fields"
	case ActionUpdateLikes:
		return "update-likes"
	case ActionAppendComment:
		return "append-comment"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Authorize decides whether the principal may perform the action on the blog.
//
// Structural edits and deletion are owner-only, and a blog without an owner
// can never be structurally edited or deleted. Likes and comments are open
// to everyone, authenticated or not - that asymmetry is intentional.
func Authorize(principalID string, blog *Blog, action Action) error {
	switch action {
	case ActionUpdateLikes, ActionAppendComment:
		return nil
	case ActionUpdateFields, ActionDelete:
		if blog.OwnerID == "" {
			// ownerless blog: fail closed
			return ErrNotOwner
		}
		if principalID == "" || blog.OwnerID != principalID {
			return ErrNotOwner
		}
		return nil
	default:
		return ErrNotOwner
	}
}
