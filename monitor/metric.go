package monitor

import (
	"sync"

	"github.com/ezlinkai/vllm-relay/common/config"
)

// window keeps the last size results per channel.
type window struct {
	mu        sync.Mutex
	size      int
	threshold float64
	store     map[int][]bool
}

func newWindow(size int, threshold float64) *window {
	return &window{size: size, threshold: threshold, store: make(map[int][]bool)}
}

func (w *window) push(channelId int, success bool) []bool {
	results := append(w.store[channelId], success)
	if len(results) > w.size {
		results = results[len(results)-w.size:]
	}
	w.store[channelId] = results
	return results
}

func (w *window) success(channelId int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.push(channelId, true)
}

// fail records a failure and reports whether the channel should be disabled.
// The window is reset once that happens.
func (w *window) fail(channelId int) (bool, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	results := w.push(channelId, false)
	successCount := 0
	for _, ok := range results {
		if ok {
			successCount++
		}
	}
	successRate := float64(successCount) / float64(len(results))
	if len(results) < w.size {
		return false, successRate
	}
	if successRate < w.threshold {
		delete(w.store, channelId)
		return true, successRate
	}
	return false, successRate
}

var (
	metrics           *window
	metricSuccessChan chan int
	metricFailChan    chan int
	startOnce         sync.Once
)

func metricSuccessConsumer() {
	for channelId := range metricSuccessChan {
		metrics.success(channelId)
	}
}

func metricFailConsumer() {
	for channelId := range metricFailChan {
		if disable, successRate := metrics.fail(channelId); disable {
			go MetricDisableChannel(channelId, successRate)
		}
	}
}

// Start runs the metric consumers when ENABLE_METRIC is set.
func Start() {
	if !config.EnableMetric {
		return
	}
	startOnce.Do(func() {
		metrics = newWindow(config.MetricQueueSize, config.MetricSuccessRateThreshold)
		metricSuccessChan = make(chan int, config.MetricSuccessChanSize)
		metricFailChan = make(chan int, config.MetricFailChanSize)
		go metricSuccessConsumer()
		go metricFailConsumer()
	})
}

func Emit(channelId int, success bool) {
	if !config.EnableMetric || metrics == nil || channelId == 0 {
		return
	}
	go func() {
		if success {
			metricSuccessChan <- channelId
		} else {
			metricFailChan <- channelId
		}
	}()
}
