package messaging

import "errors"

var (
	// ErrNotAuthor is returned when someone other than the original author
	// tries to edit or delete a message. Checked before any mutation.
	ErrNotAuthor = errors.New("only the author may modify a message")

	// ErrTombstoned is returned when modifying a soft-deleted message.
	// Deletion is terminal.
	ErrTombstoned = errors.New("message has been deleted")

	// ErrMissingContent is returned when a send carries neither text nor an
	// attachment.
	ErrMissingContent = errors.New("message has no content or attachment")
)
