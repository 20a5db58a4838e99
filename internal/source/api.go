package source

// ApiResponse models the top-level structure of the upstream resource listing.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int           `json:"page"`
		PageSize int           `json:"pageSize"`
		Total    int           `json:"total"`
		Items    []ApiResource `json:"items"`
	} `json:"data"`
}

// PoolResponse models the upstream response for a single resource pool.
type PoolResponse struct {
	Code int      `json:"code"`
	Data *ApiPool `json:"data"`
}

// ApiResource is a single resource record from the upstream API.
type ApiResource struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Mode               string     `json:"mode"`
	PoolIDs            []string   `json:"poolIds"`
	LastModified       string     `json:"lastModified"`
	AvailabilityWindow *ApiWindow `json:"availabilityWindow"`
}

// ApiWindow is the availability window attached to an upstream resource.
type ApiWindow struct {
	AvailableFrom        *string `json:"availableFrom"`
	AvailableUntil       *string `json:"availableUntil"`
	RollingWindowMinutes int     `json:"rollingWindowMinutes"`
}

// ApiPool is a resource pool record from the upstream API.
type ApiPool struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Application codes returned in the response envelope.
const (
	CodeOK         = 0
	CodeNotAllowed = 403
	CodeNotFound   = 404
)
