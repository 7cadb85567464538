package server

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"
)

const (
	// WarmupSource marks scheduled keep-warm invocations.
	WarmupSource = "warmup"

	// warmupDelay keeps this instance busy long enough for the ones it
	// invoked to start on separate instances.
	warmupDelay = 75 * time.Millisecond
)

type warmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// Invoker starts asynchronous invocations of a Lambda function.
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// LambdaHandler answers raw Lambda events. Keep-warm pings return
// immediately after fanning out to Concurrency more instances; everything
// else is decoded as a Request. Failures are reported in the response body,
// not as invocation errors.
func (s *Server) LambdaHandler(ctx context.Context, event json.RawMessage) (*Response, error) {
	var w warmupEvent
	if err := json.Unmarshal(event, &w); err == nil && w.Source == WarmupSource {
		s.warm(ctx, w.Concurrency)
		return &Response{}, nil
	}

	var req Request
	if err := json.Unmarshal(event, &req); err != nil {
		return &Response{Error: "Invalid JSON"}, nil
	}
	resp, err := s.Handle(ctx, req)
	switch {
	case errors.Is(err, ErrEmptyText):
		return &Response{Error: err.Error()}, nil
	case err != nil:
		return &Response{Error: failedMessage}, nil
	}
	return resp, nil
}

func (s *Server) warm(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		return
	}
	if s.invoker == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			s.log.Warn("warmup skipped", zap.Error(err))
			return
		}
		s.invoker = lambdasdk.NewFromConfig(cfg)
	}
	if err := selfInvoke(ctx, s.invoker, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), concurrency); err != nil {
		s.log.Warn("warmup invoke failed", zap.Error(err))
	}
	time.Sleep(warmupDelay)
}

// selfInvoke fires count asynchronous warmup events at function. The
// children get concurrency 0 so they do not fan out again.
func selfInvoke(ctx context.Context, inv Invoker, function string, count int) error {
	payload, err := json.Marshal(warmupEvent{Source: WarmupSource})
	if err != nil {
		return err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(function),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// StartLambda hands control to the Lambda runtime. It does not return.
func (s *Server) StartLambda() {
	lambda.Start(s.LambdaHandler)
}
