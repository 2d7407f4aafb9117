// Package camundatest provides an in-memory Zeebe job client for handler tests.
package camundatest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

type CompleteCall struct {
	JobKey    int64
	Variables string
}

type FailCall struct {
	JobKey       int64
	Retries      int32
	ErrorMessage string
	Variables    string
}

type ThrowCall struct {
	JobKey       int64
	ErrorCode    string
	ErrorMessage string
	Variables    string
}

// JobClient implements worker.JobClient on top of a fake gateway. Every send
// is recorded, including the ones that fail. Queued errors are returned by
// successive sends of the matching command, then sends succeed.
type JobClient struct {
	pb.GatewayClient

	mu          sync.Mutex
	completeErr []error
	failErr     []error
	throwErr    []error
	completes   []CompleteCall
	fails       []FailCall
	throws      []ThrowCall
}

func NewJobClient() *JobClient {
	return &JobClient{}
}

// FailCompletes makes the next len(errs) complete sends return errs in order.
func (c *JobClient) FailCompletes(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completeErr = append(c.completeErr, errs...)
}

func (c *JobClient) FailFails(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = append(c.failErr, errs...)
}

func (c *JobClient) FailThrows(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throwErr = append(c.throwErr, errs...)
}

func (c *JobClient) Completes() []CompleteCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CompleteCall(nil), c.completes...)
}

func (c *JobClient) Fails() []FailCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FailCall(nil), c.fails...)
}

func (c *JobClient) Throws() []ThrowCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ThrowCall(nil), c.throws...)
}

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c, neverRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c, neverRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c, neverRetry)
}

func (c *JobClient) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completes = append(c.completes, CompleteCall{JobKey: in.GetJobKey(), Variables: in.GetVariables()})
	if err := pop(&c.completeErr); err != nil {
		return nil, err
	}
	return &pb.CompleteJobResponse{}, nil
}

func (c *JobClient) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails = append(c.fails, FailCall{
		JobKey:       in.GetJobKey(),
		Retries:      in.GetRetries(),
		ErrorMessage: in.GetErrorMessage(),
		Variables:    in.GetVariables(),
	})
	if err := pop(&c.failErr); err != nil {
		return nil, err
	}
	return &pb.FailJobResponse{}, nil
}

func (c *JobClient) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throws = append(c.throws, ThrowCall{
		JobKey:       in.GetJobKey(),
		ErrorCode:    in.GetErrorCode(),
		ErrorMessage: in.GetErrorMessage(),
		Variables:    in.GetVariables(),
	})
	if err := pop(&c.throwErr); err != nil {
		return nil, err
	}
	return &pb.ThrowErrorResponse{}, nil
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func neverRetry(context.Context, error) bool { return false }
