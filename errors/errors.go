package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrHandleClosed   = fmt.Errorf("connection handle closed")
	ErrSendBufferFull = fmt.Errorf("send buffer full")
	ErrNotRoutable    = fmt.Errorf("only content messages are routable")
)
