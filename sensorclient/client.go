package sensorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cepro/dhtclient/telemetry"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

const (
	readMethod  = "read_dht_sensor"
	contentType = "application/json-rpc"
)

var ErrNoResult = errors.New("response has no result")

// RetryPolicy controls how many times a failed request is repeated. The zero value makes exactly one request.
type RetryPolicy struct {
	Retries         int
	InitialInterval time.Duration
}

// Client implements the JSON-RPC API onto a DHT sensor host.
type Client struct {
	httpClient http.Client
	url        string
	retry      RetryPolicy

	logger *slog.Logger
}

// rpcRequest is the JSON-RPC envelope that is POSTed to the sensor host.
type rpcRequest struct {
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the JSON-RPC envelope that is sent back by the sensor host.
type rpcResponse struct {
	Result map[string]interface{} `json:"result"`
	Error  *rpcError              `json:"error"`
}

// rpcResult is the `result` member of a `read_dht_sensor` response. Any of the fields may be missing or null.
type rpcResult struct {
	Time        *float64 `mapstructure:"time"`
	Humidity    *float64 `mapstructure:"humidity"`
	Temperature *float64 `mapstructure:"temperature"`
	Key         string   `mapstructure:"key"`
}

// statusError is returned when the sensor host replies with a non-2xx status.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

func New(httpClient http.Client, address string, port int, retry RetryPolicy) *Client {
	endpoint := fmt.Sprintf("http://%s:%d/jsonrpc", address, port)
	return &Client{
		httpClient: httpClient,
		url:        endpoint,
		retry:      retry,
		logger:     slog.Default().With("url", endpoint),
	}
}

// FetchReading asks the sensor host for a new reading and returns it.
// A reading with absent humidity or temperature is not an error, the values are left as nil.
func (c *Client) FetchReading(ctx context.Context) (telemetry.Reading, error) {

	if c.retry.Retries <= 0 {
		return c.requestReading(ctx)
	}

	expBackoff := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		expBackoff.InitialInterval = c.retry.InitialInterval
	}
	expBackoff.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.retry.Retries)), ctx)

	attempt := 0
	return backoff.RetryWithData[telemetry.Reading](func() (telemetry.Reading, error) {
		attempt++
		reading, err := c.requestReading(ctx)
		if err != nil && !retryable(err) {
			return reading, backoff.Permanent(err)
		}
		if err != nil {
			c.logger.Warn("Sensor request failed", "attempt", attempt, "error", err)
		}
		return reading, err
	}, policy)
}

// requestReading makes a single `read_dht_sensor` call.
func (c *Client) requestReading(ctx context.Context) (telemetry.Reading, error) {

	payload, err := json.Marshal(rpcRequest{
		Method:  readMethod,
		Params:  []interface{}{},
		JSONRPC: "2.0",
		ID:      0,
	})
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return telemetry.Reading{}, err
	}
	req.Header.Set("Content-Type", contentType)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("post %s: %w", readMethod, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return telemetry.Reading{}, &statusError{code: response.StatusCode}
	}

	parsedResponse := rpcResponse{}
	err = json.NewDecoder(response.Body).Decode(&parsedResponse)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("parse body: %w", err)
	}

	if parsedResponse.Error != nil {
		return telemetry.Reading{}, fmt.Errorf("%s: rpc error %d: %s", readMethod, parsedResponse.Error.Code, parsedResponse.Error.Message)
	}
	if parsedResponse.Result == nil {
		return telemetry.Reading{}, ErrNoResult
	}

	c.logger.Debug("Received sensor result", "result", parsedResponse.Result)

	return decodeResult(parsedResponse.Result)
}

// decodeResult converts the generic `result` map into a Reading.
func decodeResult(result map[string]interface{}) (telemetry.Reading, error) {

	parsed := rpcResult{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &parsed,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return telemetry.Reading{}, err
	}
	err = decoder.Decode(result)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("decode result: %w", err)
	}

	return telemetry.Reading{
		ID:          uuid.New(),
		Time:        parsed.Time,
		Humidity:    parsed.Humidity,
		Temperature: parsed.Temperature,
		Key:         parsed.Key,
	}, nil
}

// retryable returns true for failures that may go away on their own: transport errors and 5xx responses.
func retryable(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code >= 500
	}
	var transportErr *url.Error
	return errors.As(err, &transportErr)
}
