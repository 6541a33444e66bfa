package workerctl

import "github.com/wagiedev/workerctl/internal/config"

// Transport defines the interface for the raw controller to worker link.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote connections).
//
// The default implementation spawns the worker as a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport
