package ipc

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime and inventory information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	Addr         string `json:"addr"`
	Sessions     int    `json:"sessions"`
	Racks        int    `json:"racks"`
	Devices      int    `json:"devices"`
	DatabasePath string `json:"database_path"`
	LockPath     string `json:"lock_path"`
	PID          int    `json:"pid"`
	Version      string `json:"version"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}
