package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/gin-gonic/gin"
)

const (
	dataPrefix = "data: "
	doneLine   = "data: [DONE]"
)

func StreamHandler(c *gin.Context, resp *http.Response, relayMode int) (*model.ErrorWithStatusCode, string, *model.Usage) {
	responseText := ""
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	scanner.Split(func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[0:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	})
	dataChan := make(chan string)
	stopChan := make(chan bool, 1)
	done := make(chan struct{})
	pumpExited := make(chan struct{})
	var usage *model.Usage

	startTime := time.Now()
	if t, ok := c.Get("request_start_time"); ok {
		if requestStart, ok := t.(time.Time); ok {
			startTime = requestStart
		}
	}
	var firstWordTime *time.Time

	ctx := context.WithValue(c.Request.Context(), common.StopChanKey, stopChan)
	common.RelayCtxGo(ctx, func() {
		defer close(pumpExited)
		for scanner.Scan() {
			data := strings.TrimSuffix(scanner.Text(), "\r")
			if len(data) < len(dataPrefix) { // ignore blank line or wrong format
				continue
			}
			if !strings.HasPrefix(data, dataPrefix) {
				continue
			}
			select {
			case dataChan <- data:
			case <-done:
				return
			}
			payload := data[len(dataPrefix):]
			if strings.HasPrefix(payload, "[DONE]") {
				continue
			}
			switch relayMode {
			case constant.RelayModeChatCompletions:
				var streamResponse ChatCompletionsStreamResponse
				if err := json.Unmarshal([]byte(payload), &streamResponse); err != nil {
					logger.SysError("error unmarshalling stream response: " + err.Error())
					continue
				}
				for _, choice := range streamResponse.Choices {
					content := choice.Delta.StringContent()
					if content != "" && firstWordTime == nil {
						now := time.Now()
						firstWordTime = &now
					}
					responseText += content
				}
				if streamResponse.Usage != nil {
					usage = streamResponse.Usage
				}
			case constant.RelayModeCompletions:
				var streamResponse CompletionsStreamResponse
				if err := json.Unmarshal([]byte(payload), &streamResponse); err != nil {
					logger.SysError("error unmarshalling stream response: " + err.Error())
					continue
				}
				for _, choice := range streamResponse.Choices {
					if choice.Text != "" && firstWordTime == nil {
						now := time.Now()
						firstWordTime = &now
					}
					responseText += choice.Text
				}
				if streamResponse.Usage != nil {
					usage = streamResponse.Usage
				}
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warnf(c.Request.Context(), "stream read stopped: %s", err.Error())
		}
		common.SafeSendBool(stopChan, true)
	})
	common.SetEventStreamHeaders(c)
	clientGone := c.Stream(func(w io.Writer) bool {
		select {
		case data := <-dataChan:
			if strings.HasPrefix(data, doneLine) {
				data = doneLine
			}
			c.Render(-1, common.CustomEvent{Data: data})
			return true
		case <-stopChan:
			return false
		}
	})
	// the pump may still be blocked on a send or a read; release both
	close(done)
	closeErr := resp.Body.Close()
	<-pumpExited
	if clientGone {
		logger.Warnf(c.Request.Context(), "client disconnected during stream")
	}
	if closeErr != nil {
		return ErrorWrapper(closeErr, "close_response_body_failed", http.StatusInternalServerError), "", nil
	}
	if firstWordTime != nil {
		c.Set("first_word_latency", firstWordTime.Sub(startTime).Seconds())
	}
	return nil, responseText, usage
}

func Handler(c *gin.Context, resp *http.Response, promptTokens int, modelName string) (*model.ErrorWithStatusCode, *model.Usage) {
	var textResponse SlimTextResponse
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrorWrapper(err, "read_response_body_failed", http.StatusInternalServerError), nil
	}
	if err = resp.Body.Close(); err != nil {
		return ErrorWrapper(err, "close_response_body_failed", http.StatusInternalServerError), nil
	}
	if err = json.Unmarshal(responseBody, &textResponse); err != nil {
		return ErrorWrapper(err, "unmarshal_response_body_failed", http.StatusInternalServerError), nil
	}
	if textResponse.Error.Type != "" {
		return &model.ErrorWithStatusCode{
			Error:      textResponse.Error,
			StatusCode: resp.StatusCode,
		}, nil
	}

	// Headers are only written once the body parsed, otherwise an error
	// response could no longer be sent.
	for k, v := range resp.Header {
		c.Writer.Header().Set(k, v[0])
	}
	c.Writer.WriteHeader(resp.StatusCode)
	if _, err = io.Copy(c.Writer, bytes.NewReader(responseBody)); err != nil {
		return ErrorWrapper(err, "copy_response_body_failed", http.StatusInternalServerError), nil
	}

	if textResponse.Usage.TotalTokens == 0 || (textResponse.Usage.PromptTokens == 0 && textResponse.Usage.CompletionTokens == 0) {
		completionTokens := 0
		for _, choice := range textResponse.Choices {
			completionTokens += CountTokenText(choice.Message.StringContent()+choice.Text, modelName)
		}
		textResponse.Usage = model.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		}
	}
	return nil, &textResponse.Usage
}
