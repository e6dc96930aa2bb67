package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

var (
	// connection errors
	ErrDisconnected = errors.New("connection disconnected")
	ErrCanceled     = errors.New("request canceled")
	ErrShutdown     = errors.New("remoting client is shut down")

	// frame and header errors
	ErrInvalidHeaderCodec = errors.New("invalid header codec")
	ErrTruncatedFrame     = errors.New("truncated frame")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrInvalidUTF8        = errors.New("invalid utf-8 in header")
	ErrFrameTooLarge      = errors.New("frame too large")

	// route errors
	ErrEmptyNameServers = errors.New("no name server addresses")
	ErrEmptyRouteData   = errors.New("no route data available")
	ErrTopicNotExist    = errors.New("topic does not exist")
	ErrBrokerNotFound   = errors.New("broker address not found")
)

// TopicNotExistError is returned when a name server reports that it has no
// route for a topic. errors.Is(err, ErrTopicNotExist) matches it.
type TopicNotExistError struct {
	Topic string
}

func (e *TopicNotExistError) Error() string {
	return fmt.Sprintf("topic %q does not exist", e.Topic)
}

// Is makes the error match ErrTopicNotExist
func (e *TopicNotExistError) Is(target error) bool {
	return target == ErrTopicNotExist
}

// ResponseError is a non success response code reported by a server
type ResponseError struct {
	Code    int16  // The response code
	Message string // The remark sent by the server
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("ResponseError (code %d %s): %s", e.Code, ResponseCodeName(e.Code), e.Message)
}

// NewResponseError creates a ResponseError from a response command
func NewResponseError(res *Command) *ResponseError {
	return &ResponseError{
		Code:    res.Header.Code,
		Message: res.Header.Remark,
	}
}
