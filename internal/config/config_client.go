package config

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
)

// ClientConfig holds the configuration settings for the agent.
type ClientConfig struct {
	ServerAddr     string // Server address
	ReportInterval int    // Interval for sending snapshots (in seconds)
	ClientTimeout  int    // HTTP client timeout (in seconds)
	ClientName     string // Name reported as client_name, hostname when empty
	PingTarget     string // host:port dialed to measure latency
}

// NewClientConfig creates and returns a new ClientConfig by parsing flags and environment variables.
func NewClientConfig() *ClientConfig {
	loadDotEnv()

	cfg := &ClientConfig{
		ServerAddr:     "http://localhost:8000",
		ReportInterval: 10,
		ClientTimeout:  10,
		PingTarget:     "8.8.8.8:53",
	}

	var fAddr, fName, fPing, fConf strFlag
	var fRep, fTO intFlag
	flag.Var(&fAddr, "a", "HTTP server address (must include http(s)://)")
	flag.Var(&fRep, "r", "report interval (seconds)")
	flag.Var(&fTO, "t", "client timeout (seconds)")
	flag.Var(&fName, "n", "client name")
	flag.Var(&fPing, "ping", "host:port used to measure latency")
	flag.Var(&fConf, "c", "Path to config file")
	flag.Var(&fConf, "config", "Path to config file (alias)")
	flag.Parse()

	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		if fc, err := loadClientFile(fConf.v); err == nil {
			fc.apply(cfg)
		} else {
			log.Printf("failed to read config file %s: %v", fConf.v, err)
		}
	}

	if fAddr.set {
		cfg.ServerAddr = fAddr.v
	}
	if fRep.set {
		cfg.ReportInterval = fRep.v
	}
	if fTO.set {
		cfg.ClientTimeout = fTO.v
	}
	if fName.set {
		cfg.ClientName = fName.v
	}
	if fPing.set {
		cfg.PingTarget = fPing.v
	}

	readClientEnvironment(cfg)

	// normalize address
	if !strings.HasPrefix(cfg.ServerAddr, "http://") && !strings.HasPrefix(cfg.ServerAddr, "https://") {
		cfg.ServerAddr = "http://" + cfg.ServerAddr
	}
	cfg.ServerAddr = strings.TrimRight(cfg.ServerAddr, "/")
	return cfg
}

func readClientEnvironment(cfg *ClientConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.ServerAddr = addr
	}

	reportIntervalEnv := os.Getenv("REPORT_INTERVAL")
	if reportIntervalEnv != "" {
		v, err := strconv.Atoi(reportIntervalEnv)
		if err == nil {
			cfg.ReportInterval = v
		} else {
			log.Printf("invalid REPORT_INTERVAL env var: %v", err)
		}
	}

	if name := os.Getenv("CLIENT_NAME"); name != "" {
		cfg.ClientName = name
	}

	if target := os.Getenv("PING_TARGET"); target != "" {
		cfg.PingTarget = target
	}
}
