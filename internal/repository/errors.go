package repository

import "errors"

var (
	ErrMessageRuleNotFound        = errors.New("message rule not found")
	ErrMessageReceiverNotFound    = errors.New("message receiver not found")
	ErrMessageRequestNotFound     = errors.New("message request not found")
	ErrBroadcastNotFound          = errors.New("manual broadcast message not found")
	ErrOrganisationConfigNotFound = errors.New("organisation config not found")
	ErrSubjectNotFound            = errors.New("subject not found")
	ErrUserNotFound               = errors.New("user not found")
)
