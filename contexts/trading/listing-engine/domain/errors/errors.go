package errors

import "errors"

var (
	ErrInvalidCollection        = errors.New("collection identity is invalid")
	ErrInvalidPrice             = errors.New("price must be strictly positive")
	ErrNotOwner                 = errors.New("caller is not the current asset owner")
	ErrAlreadyListed            = errors.New("asset is already listed")
	ErrNotListed                = errors.New("asset is not listed")
	ErrNotApproved              = errors.New("engine is not approved to transfer the asset")
	ErrIncorrectPayment         = errors.New("attached amount does not equal the listing price")
	ErrSettlementTransferFailed = errors.New("settlement transfer failed")
	ErrInvalidRequest           = errors.New("invalid listing request")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
