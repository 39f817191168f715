package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-local-db device-local SQLite file path
//	-c/-config json file path with configs
//	-company-id company identifier
//	-device-id this replica's device identifier
//	-master-secret company master passphrase
//	-epoch-salt argon2id salt for KEK derivation
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "720h")
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-hub-url hub base URL for the device push job
//	-push-interval push job interval (e.g., "30s")
//	-rotation-batch-size entities per rewrap batch
//	-rotation-interval rewrap job interval (e.g., "5s")
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var localDBPath string
	var jsonConfigPath string
	var companyID string
	var deviceID string
	var masterSecret string
	var epochSalt string
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var requestTimeout time.Duration
	var hubURL string
	var pushInterval time.Duration
	var rotationBatchSize int
	var rotationInterval time.Duration

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&localDBPath, "local-db", "", "Device-local SQLite file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&companyID, "company-id", "", "Company identifier")
	flag.StringVar(&deviceID, "device-id", "", "Device identifier")
	flag.StringVar(&masterSecret, "master-secret", "", "Company master passphrase")
	flag.StringVar(&epochSalt, "epoch-salt", "", "Argon2id salt for KEK derivation")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 720h)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&hubURL, "hub-url", "", "Hub base URL for the device push job")
	flag.DurationVar(&pushInterval, "push-interval", 0, "Push job interval (e.g., 30s)")
	flag.IntVar(&rotationBatchSize, "rotation-batch-size", 0, "Entities per rewrap batch")
	flag.DurationVar(&rotationInterval, "rotation-interval", 0, "Rewrap job interval (e.g., 5s)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			CompanyID:     companyID,
			DeviceID:      deviceID,
			MasterSecret:  masterSecret,
			EpochSalt:     epochSalt,
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Local: LocalDB{
				Path: localDBPath,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			HubURL:       hubURL,
			PushInterval: pushInterval,
		},
		Rotation: Rotation{
			BatchSize: rotationBatchSize,
			Interval:  rotationInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns the default server address.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
