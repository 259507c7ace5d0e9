package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	. "github.com/alexdcox/accumulate-go"
	"github.com/alexdcox/accumulate-go/rpcclient"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errBadRequest = errors.New("bad request")

func NewHttpRpcServer(config *_config, client *Client) (server *HttpRpcServer, err error) {
	if client == nil {
		return nil, errors.New("http server requires a client")
	}

	RegisterMetrics()

	server = &HttpRpcServer{
		config:  config,
		client:  client,
		limiter: newIPRateLimiter(config.RateLimit, config.RateBurst),
	}

	server.app = fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})
	server.app.Use(recover.New())
	server.app.Use(func(c *fiber.Ctx) error {
		rsp := c.Next()
		log.Info().Msgf("http response: [%d] %s - %s %s", c.Response().StatusCode(), c.IP(), c.Method(), c.Path())
		return rsp
	})

	server.app.Get("/status", server.getStatus)
	server.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	tx := server.app.Group("/tx", server.limiter.middleware())
	tx.Post("/prepare", server.postPrepare)
	tx.Post("/submit", server.postSubmit)

	return
}

type HttpRpcServer struct {
	app     *fiber.App
	client  *Client
	config  *_config
	limiter *ipRateLimiter
}

func (s *HttpRpcServer) Start() (err error) {
	log.Info().Msgf("http/rpc server listening on %s", s.config.ListenAddress)
	return errors.WithStack(s.app.Listen(s.config.ListenAddress))
}

func (s *HttpRpcServer) Stop() (err error) {
	return errors.WithStack(s.app.Shutdown())
}

func (s *HttpRpcServer) errorResponse(c *fiber.Ctx, err error) error {
	statusCode := http.StatusInternalServerError
	reportedErr := err

match:
	for _, mapping := range []struct {
		status int
		errs   []error
	}{
		{http.StatusNotFound, []error{ErrNotFound, ErrKeyNotFound}},
		{http.StatusBadRequest, []error{
			errBadRequest,
			ErrInvalidURL,
			ErrInvalidPublicKey,
			ErrInvalidSigner,
			ErrTimestampRequired,
			ErrFieldTypeMismatch,
			ErrInvalidHashLength,
			ErrSchemaNotFound,
			ErrUnsupportedCodec,
		}},
		{http.StatusUnprocessableEntity, []error{ErrSubmissionRejected}},
		{http.StatusBadGateway, []error{ErrRpcFailed, ErrExternalSignerFailure}},
	} {
		for _, sentinel := range mapping.errs {
			if errors.Is(err, sentinel) {
				reportedErr = sentinel
				statusCode = mapping.status
				break match
			}
		}
	}

	if statusCode == http.StatusInternalServerError {
		log.Error().Msgf("%+v", err)
	}

	return c.Status(statusCode).JSON(map[string]any{
		"error":   reportedErr.Error(),
		"details": fmt.Sprintf("%v", err),
	})
}

func (s *HttpRpcServer) unmarshalJson(c *fiber.Ctx, target any) (err error) {
	if !strings.HasPrefix(c.Get("Content-Type"), "application/json") {
		return errors.Wrap(errBadRequest, "content type must be application/json")
	}
	if err = c.BodyParser(target); err != nil {
		return errors.Wrapf(errBadRequest, "%v", err)
	}
	return
}

func (s *HttpRpcServer) postPrepare(c *fiber.Ctx) error {
	var in PrepareInput
	if err := s.unmarshalJson(c, &in); err != nil {
		return s.errorResponse(c, err)
	}

	result := s.client.Prepare(c.UserContext(), &in)
	if !result.Success {
		return s.errorResponse(c, result.Err)
	}

	return c.JSON(result)
}

func (s *HttpRpcServer) postSubmit(c *fiber.Ctx) error {
	var in rpcclient.SubmitIn
	if err := s.unmarshalJson(c, &in); err != nil {
		return s.errorResponse(c, err)
	}
	if in.RequestID == "" || len(in.Signature) == 0 {
		return s.errorResponse(c, errors.Wrap(errBadRequest, "requestId and signature are required"))
	}

	result := s.client.Submit(c.UserContext(), in.RequestID, in.Signature, in.PublicKey)
	if !result.Success {
		return s.errorResponse(c, result.Err)
	}

	return c.JSON(result)
}

func (s *HttpRpcServer) getStatus(c *fiber.Ctx) error {
	pending, err := s.client.Coordinator().Pending()
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(&rpcclient.GetStatusOut{
		Network:     s.config.Network,
		Endpoint:    s.client.Endpoint(),
		Pending:     pending,
		PreparedTTL: s.client.Coordinator().TTL().String(),
	})
}
