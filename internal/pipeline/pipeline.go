// Package pipeline holds the request admission stages that run ahead of
// routing, and the terminal handlers that answer when nothing else did.
//
// Stages run in the order given to Dispatch. Each returns a Result instead of
// calling the next handler itself, so the ordering lives in one place:
//
//	CORS gate -> body decoder -> access log -> router
//
// A failing stage records a *Failure on the gin context; ErrorTranslator,
// which wraps the whole chain, turns it into the 500 response.
package pipeline

import (
	"errors"

	"github.com/gin-gonic/gin"
)

type Kind string

const (
	KindCORS    Kind = "cors"
	KindDecode  Kind = "decode"
	KindHandler Kind = "handler"
	KindPanic   Kind = "panic"
)

// Failure tags an error with the stage category that produced it.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf reports the tag of err, defaulting to KindHandler for errors that
// were raised by route handlers through c.Error.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindHandler
}

type action int

const (
	actionContinue action = iota
	actionHalt
	actionFail
)

type Result struct {
	action action
	err    error
}

// Continue passes control to the next stage.
func Continue() Result {
	return Result{action: actionContinue}
}

// Halt stops the chain; the stage has already written the response.
func Halt() Result {
	return Result{action: actionHalt}
}

func Fail(kind Kind, err error) Result {
	return Result{action: actionFail, err: &Failure{Kind: kind, Err: err}}
}

type Stage struct {
	Name string
	Run  func(c *gin.Context) Result
}

// Dispatch runs stages in order and then hands the request to the router.
func Dispatch(stages ...Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, stage := range stages {
			res := stage.Run(c)
			switch res.action {
			case actionHalt:
				c.Abort()
				return
			case actionFail:
				_ = c.Error(res.err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
