package models

type RequestLog struct {
	ID               int64             `json:"id"`
	RequestID        string            `json:"request_id"`
	WebhookID        *int64            `json:"webhook_id,omitempty"`
	Method           string            `json:"method"`
	URL              string            `json:"url"`
	Headers          map[string]string `json:"headers"` // JSON object in DB
	Body             string            `json:"body"`
	StatusCode       int               `json:"status_code"`
	ResponseBody     string            `json:"response_body"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Validated        bool              `json:"validated"`
	Delivered        bool              `json:"delivered"`
	RenderedText     string            `json:"rendered_text,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        int64             `json:"created_at"`
}

// DailyStat is one day's rollup; WebhookID nil marks the global row.
type DailyStat struct {
	ID                    int64   `json:"id"`
	StatDate              string  `json:"stat_date"`
	WebhookID             *int64  `json:"webhook_id"`
	TotalRequests         int64   `json:"total_requests"`
	SuccessfulRequests    int64   `json:"successful_requests"`
	FailedRequests        int64   `json:"failed_requests"`
	ValidationFailures    int64   `json:"validation_failures"`
	DeliveryFailures      int64   `json:"delivery_failures"`
	TotalProcessingTimeMs int64   `json:"total_processing_time_ms"`
	AvgProcessingTimeMs   float64 `json:"avg_processing_time_ms"`
	MinProcessingTimeMs   int64   `json:"min_processing_time_ms"`
	MaxProcessingTimeMs   int64   `json:"max_processing_time_ms"`
	CreatedAt             int64   `json:"created_at"`
	UpdatedAt             int64   `json:"updated_at"`
}
