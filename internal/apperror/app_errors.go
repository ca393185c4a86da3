package apperror

import "errors"

var (
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrInvalidSuit     = errors.New("invalid trump suit")
	ErrMustCall        = errors.New("dealer must call a trump suit")
	ErrNotDealer       = errors.New("only the dealer can do that")
	ErrInvalidCard     = errors.New("card is not in your hand")
	ErrInactivePartner = errors.New("partner is sitting out this round")
	ErrMustFollowSuit  = errors.New("must follow the led suit")

	ErrRoomIsFull         = errors.New("room is full")
	ErrRoomAlreadyPlaying = errors.New("game is already in progress")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrGameFinished       = errors.New("game is already finished")
	ErrNotRoomOwner       = errors.New("only the room owner can do that")
)
