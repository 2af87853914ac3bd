package errors

import "fmt"

var (
	// Binding errors are terminal for the connection attempt; the server never retries.
	ErrUnknownBindingToken = fmt.Errorf("unknown or expired binding token")
	ErrMissingBindingToken = fmt.Errorf("missing binding token")

	// Validation errors travel back as error frames; the connection stays open.
	ErrChannelRequired = fmt.Errorf("channel ID is required")
	ErrContentRequired = fmt.Errorf("text or at least one attachment is required")
	ErrTargetRequired  = fmt.Errorf("target user ID is required")

	ErrNotChannelMember  = fmt.Errorf("not a member of this channel")
	ErrMissingPermission = fmt.Errorf("missing permission")
	ErrNotMessageSender  = fmt.Errorf("not the sender of this message")

	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrChannelNotFound = fmt.Errorf("channel not found")
	ErrMessageNotFound = fmt.Errorf("message not found")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidPassword    = fmt.Errorf("invalid password")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserArchived       = fmt.Errorf("user is archived")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrAvatarTooLarge    = fmt.Errorf("avatar exceeds the maximum allowed size")
	ErrUnsupportedAvatar = fmt.Errorf("avatar is not a decodable image")

	ErrAttachmentsDisabled = fmt.Errorf("attachments are disabled")

	// Startup configuration errors, the only fatal class.
	ErrMissingFileSecret = fmt.Errorf("FILE_SECRET is required when attachments are enabled")
	ErrMissingFileFolder = fmt.Errorf("FILE_FOLDER is required when attachments are enabled")

	ErrCorruptCiphertext = fmt.Errorf("ciphertext shorter than IV")
)
