package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// controllerDataPath is the only controller endpoint the dashboard exposes
const controllerDataPath = "/api/data"

// MaxLimit caps the number of records a passthrough request may ask for
const MaxLimit = 10000

// ControllerProxy is a read-only passthrough to the brewing controller's raw
// data endpoint. Every request is rewritten to GET {target}/api/data.
type ControllerProxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// NewControllerProxy creates a proxy for the controller at targetURL
func NewControllerProxy(targetURL string, timeout time.Duration, logger *zap.Logger) (*ControllerProxy, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("target URL must be absolute: %q", targetURL)
	}

	basePath := strings.TrimRight(target.Path, "/")

	proxy := &httputil.ReverseProxy{
		BufferPool: newBufferPool(),
	}

	proxy.Director = func(req *http.Request) {
		originalPath := req.URL.Path

		query := url.Values{}
		if limit := req.URL.Query().Get("limit"); limit != "" {
			query.Set("limit", limit)
		}

		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.URL.Path = basePath + controllerDataPath
		req.URL.RawPath = ""
		req.URL.RawQuery = query.Encode()
		req.Host = target.Host

		// the session token is for the dashboard only
		req.Header.Del("Authorization")
		req.Header.Set("X-Original-Path", originalPath)

		logger.Debug("Proxying controller request",
			zap.String("original_path", originalPath),
			zap.String("backend_url", req.URL.String()),
		)
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		statusCode := http.StatusBadGateway
		if isTimeout(err) {
			statusCode = http.StatusGatewayTimeout
		}

		logger.Error("Controller proxy error",
			zap.String("target_host", target.Host),
			zap.Int("status", statusCode),
			zap.Error(err),
		)

		writeJSONError(w, statusCode, "Brewing controller unavailable")
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		// Remove backend CORS headers to prevent conflicts
		for key := range resp.Header {
			if strings.HasPrefix(key, "Access-Control-") {
				resp.Header.Del(key)
			}
		}
		resp.Header.Set("X-Proxied-By", "dt-brewers")
		return nil
	}

	proxy.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	logger.Info("Controller proxy created", zap.String("target_url", target.String()))

	return &ControllerProxy{
		target: target,
		proxy:  proxy,
		logger: logger,
	}, nil
}

// ServeHTTP forwards GET requests; anything else is rejected
func (p *ControllerProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSONError(w, http.StatusMethodNotAllowed, "Controller data is read-only")
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
			return
		}
	}

	p.proxy.ServeHTTP(w, r)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// bufferPool implements httputil.BufferPool
type bufferPool struct {
	pool chan []byte
}

func newBufferPool() httputil.BufferPool {
	return &bufferPool{
		pool: make(chan []byte, 16),
	}
}

func (bp *bufferPool) Get() []byte {
	select {
	case buf := <-bp.pool:
		return buf
	default:
		return make([]byte, 32*1024)
	}
}

func (bp *bufferPool) Put(buf []byte) {
	select {
	case bp.pool <- buf:
	default:
	}
}
