package service

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrPairRejected         = errors.New("interest between these users was rejected")
	ErrFeatureDisabled      = errors.New("feature disabled, try again later")
	ErrUnknownTemplate      = errors.New("unknown template kind")
	ErrAddressUnresolved    = errors.New("delivery address unresolved")
	ErrBatchInProgress      = errors.New("delivery batch already running")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrEventNotFound        = errors.New("notification event not found")
)
