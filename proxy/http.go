package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/requestid"
	"quota-guard-service/httperrors"
	"quota-guard-service/request"
)

const (
	requestIdHeader = "x-request-id"
)

type HttpHostManager interface {
	Next() (string, error)
}

type Http struct {
	hostManager HttpHostManager
	timeout     time.Duration
}

func NewHttp(hostManager HttpHostManager, timeout time.Duration) Http {
	return Http{
		hostManager: hostManager,
		timeout:     timeout,
	}
}

func (p Http) Handle(ctx *request.Context) error {
	host, err := p.hostManager.Next()
	if err != nil {
		return errors.WithMessage(err, "http: next host")
	}

	rawUrl := fmt.Sprintf("http://%s", host) // secure HTTP links are reset connection
	target, err := url.Parse(rawUrl)
	if err != nil {
		return errors.WithMessage(err, "http: parse url")
	}

	httpRequest := ctx.Request()
	httpRequest.URL.Path = ctx.Endpoint()
	httpRequest.Header.Set(requestIdHeader, requestid.FromContext(ctx.Context()))

	reverseProxy := httputil.NewSingleHostReverseProxy(target)
	var resultError error
	reverseProxy.ErrorHandler = func(writer http.ResponseWriter, request *http.Request, err error) {
		resultError = httperrors.New(
			http.StatusServiceUnavailable,
			"upstream is not available",
			errors.WithMessagef(err, "http proxy to %s", host),
		)
	}

	proxyCtx, cancel := context.WithTimeout(httpRequest.Context(), p.timeout)
	defer cancel()
	httpRequest = httpRequest.WithContext(proxyCtx)
	reverseProxy.ServeHTTP(ctx.ResponseWriter(), httpRequest)

	return resultError
}
