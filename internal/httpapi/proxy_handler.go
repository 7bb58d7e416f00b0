package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"llm_proxy/internal/auth"
	"llm_proxy/internal/logging"
	"llm_proxy/internal/utils"
)

// MaxRequestBodySize caps buffered inbound bodies. Request bodies are small
// JSON payloads; streaming uploads are out of scope.
const MaxRequestBodySize = 10 << 20

// Headers never copied to the outbound request. The gateway speaks to the
// upstream with its own credential.
var strippedRequestHeaders = map[string]bool{
	"host":           true,
	"authorization":  true,
	"content-length": true,
}

// Hop-by-hop headers never relayed back to the caller.
var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// handleProxy forwards one /v1/* request to the fixed upstream.
//
// Flow:
//  1. Buffer the inbound body
//  2. Authenticate via Bearer credential (when enabled)
//  3. Rebuild the request against the upstream base URL
//  4. Relay the response, streamed or buffered, unchanged
//  5. Flush the exchange record after the last byte, off the client path
//
// Rejected and failed requests never produce an exchange record; only real
// exchanges are logged.
func (d *Dependencies) handleProxy(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	if !allowedMethods[r.Method] {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	callerID := ""
	if d.Config.AuthEnabled {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			log.Warn().
				Str("request_id", requestID).
				Str("path", r.URL.Path).
				Msg(err.Error())
			utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}

		owner, ok := d.Keys.Validate(token)
		if !ok {
			log.Warn().
				Str("request_id", requestID).
				Str("path", r.URL.Path).
				Str("token", utils.MaskKey(token)).
				Msg("invalid credential")
			utils.RespondWithError(w, http.StatusUnauthorized, "invalid credential")
			return
		}
		callerID = owner.ID
	}

	ex := d.Recorder.Begin(r.Method, r.URL.Path, r.Header, body, callerID)

	outbound, err := d.buildUpstreamRequest(r, body)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to build upstream request")
		return
	}

	start := time.Now()
	resp, err := d.Client.Do(outbound)
	if err != nil {
		d.writeUpstreamError(w, r, requestID, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if isStreamingResponse(resp) {
		d.relayStream(w, resp, ex, requestID, start)
	} else {
		d.relayBuffered(w, resp, ex, requestID, start)
	}
}

// buildUpstreamRequest rebuilds the inbound request against the upstream
// base: same method, body and path (query included), caller headers minus
// the stripped set, and the gateway's own credential.
func (d *Dependencies) buildUpstreamRequest(r *http.Request, body []byte) (*http.Request, error) {
	url := d.Config.UpstreamBaseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for key, values := range r.Header {
		if strippedRequestHeaders[strings.ToLower(key)] {
			continue
		}
		for _, v := range values {
			outbound.Header.Add(key, v)
		}
	}

	outbound.Header.Set("Authorization", "Bearer "+d.Config.UpstreamAPIKey)
	outbound.Header.Set("Content-Type", "application/json")

	return outbound, nil
}

// isStreamingResponse classifies event-stream and chunked responses, which
// are relayed incrementally.
func isStreamingResponse(resp *http.Response) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return true
	}
	for _, enc := range resp.TransferEncoding {
		if enc == "chunked" {
			return true
		}
	}
	return strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked")
}

// relayStream forwards chunks to the caller as they arrive while teeing them
// into a side buffer owned by this request. The exchange record is flushed
// only after the last relayed byte; if the caller disconnects mid-stream the
// partial buffer is still flushed as a record.
func (d *Dependencies) relayStream(w http.ResponseWriter, resp *http.Response, ex *logging.Exchange, requestID string, start time.Time) {
	copyResponseHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)

	var captured bytes.Buffer
	buf := make([]byte, 32*1024)
	clientGone := false

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			captured.Write(chunk)

			if _, writeErr := w.Write(chunk); writeErr != nil {
				// Caller went away; stop relaying, keep what we captured.
				clientGone = true
			} else if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF && !clientGone {
				log.Warn().Err(readErr).Str("request_id", requestID).Msg("upstream stream ended early")
			}
			break
		}
		if clientGone {
			break
		}
	}

	ex.Complete(resp.StatusCode, resp.Header, captured.Bytes(), true)
	d.flushExchange(ex, requestID)

	log.Info().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Bool("streaming", true).
		Bool("client_disconnected", clientGone).
		Dur("duration", time.Since(start)).
		Msg("exchange relayed")
}

// relayBuffered reads the whole upstream body, returns it as one response,
// then flushes the exchange record.
func (d *Dependencies) relayBuffered(w http.ResponseWriter, resp *http.Response, ex *logging.Exchange, requestID string, start time.Time) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("failed to read upstream response")
		utils.RespondWithError(w, http.StatusBadGateway, "bad gateway: failed to read upstream response")
		return
	}

	copyResponseHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)

	ex.Complete(resp.StatusCode, resp.Header, body, false)
	d.flushExchange(ex, requestID)

	log.Info().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Bool("streaming", false).
		Dur("duration", time.Since(start)).
		Msg("exchange relayed")
}

// flushExchange hands the completed exchange to the recorder. Failures are
// operator-visible only; the client response is already fully sent.
func (d *Dependencies) flushExchange(ex *logging.Exchange, requestID string) {
	if err := d.Recorder.Flush(ex); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("failed to flush exchange record")
	}
}

// writeUpstreamError maps transport failures: timeouts become 504, anything
// else 502 with a short diagnostic. Neither produces an exchange record.
func (d *Dependencies) writeUpstreamError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	if isTimeoutError(err) {
		log.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("upstream timeout")
		utils.RespondWithError(w, http.StatusGatewayTimeout, "gateway timeout")
		return
	}

	log.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("upstream request failed")
	utils.RespondWithError(w, http.StatusBadGateway, "bad gateway: "+err.Error())
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// copyResponseHeaders relays upstream headers minus the hop-by-hop set.
func copyResponseHeaders(w http.ResponseWriter, headers http.Header) {
	for key, values := range headers {
		if hopByHopHeaders[strings.ToLower(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
}
