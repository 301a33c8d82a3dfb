package constants

import "time"

var CacheTTL = struct {
	Records time.Duration
}{
	Records: 5 * time.Minute, // 5분 - 원본 레코드 목록
}

var APIConfig = struct {
	DefaultBaseURL string
	FishPath       string
	Timeout        time.Duration
}{
	DefaultBaseURL: "http://localhost:5001",
	FishPath:       "/gofish",
	Timeout:        10 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // 3회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // 기본 재시도 대기 시간 (30초)
}

var PaginationConfig = struct {
	InitialVisibleCount int
	LoadMoreCount       int
	LoadMoreDelay       time.Duration
	ScrollThreshold     int
}{
	InitialVisibleCount: 6,
	LoadMoreCount:       6,
	LoadMoreDelay:       300 * time.Millisecond,
	ScrollThreshold:     200,
}

var PrefetchConfig = struct {
	TierSize        int
	TierStagger     time.Duration
	Residency       time.Duration
	RegionStagger   time.Duration
	PriorityRegions int
	CardMargin      int
}{
	TierSize:        3,
	TierStagger:     500 * time.Millisecond,
	Residency:       10 * time.Second,
	RegionStagger:   200 * time.Millisecond,
	PriorityRegions: 3,
	CardMargin:      100,
}

var WebSocketConfig = struct {
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}{
	WriteTimeout:   10 * time.Second,
	PongWait:       60 * time.Second,
	PingInterval:   50 * time.Second,
	MaxMessageSize: 8 * 1024,
	SendBuffer:     64,
}

var StringLimits = struct {
	CardDescription int
}{
	CardDescription: 100,
}
