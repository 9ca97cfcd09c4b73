package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/ipinfo/go/v2/ipinfo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// IpInfo is the slimmed down visitor location we actually use.
type IpInfo struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

var devIpInfo = IpInfo{
	IP:          "127.0.0.1",
	City:        "Paris",
	Country:     "France",
	CountryCode: "FR",
}

type ipInfoFetcher interface {
	GetIPInfo(ip net.IP) (*ipinfo.Core, error)
}

type Api struct {
	// the free ipinfo plan is small; the mutex collapses a burst of
	// concurrent lookups onto the redis cache
	mu          sync.Mutex
	fetcher     ipInfoFetcher
	redisClient *redis.Client
}

func NewApi(apiKey string, httpClient *http.Client, redisClient *redis.Client) *Api {
	return &Api{
		fetcher:     ipinfo.NewClient(httpClient, nil, apiKey),
		redisClient: redisClient,
	}
}

func NewApiWithFetcher(fetcher ipInfoFetcher, redisClient *redis.Client) *Api {
	return &Api{
		fetcher:     fetcher,
		redisClient: redisClient,
	}
}

// GetRequestGeoInfo resolves the location of the visitor behind the request.
func (gi *Api) GetRequestGeoInfo(ctx context.Context, r *http.Request) (*IpInfo, error) {
	userIp, err := pkg.ReadUserIP(r)
	if err != nil {
		return nil, fmt.Errorf("get user ip: %w", err)
	}
	return gi.GetIPInfo(ctx, userIp)
}

// CountryForIP returns the country name for the address, empty when unknown.
func (gi *Api) CountryForIP(ctx context.Context, ip string) (string, error) {
	info, err := gi.GetIPInfo(ctx, ip)
	if err != nil {
		return "", err
	}
	return info.Country, nil
}

func (gi *Api) GetIPInfo(ctx context.Context, userIp string) (*IpInfo, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoIp.getIpInfo")
	defer span.End()
	span.SetAttributes(attribute.String("user.ip", userIp))

	// used for development
	if userIp == "localhost" || userIp == "127.0.0.1" || userIp == "::1" {
		log.Debugf("request geo info: returning development localhost / Paris")
		return &devIpInfo, nil
	}

	parsedIp := net.ParseIP(userIp)
	if parsedIp == nil {
		return nil, fmt.Errorf("invalid ip address: %s", userIp)
	}

	gi.mu.Lock()
	defer gi.mu.Unlock()

	userIpKey := fmt.Sprintf("ip-info::%s", userIp)
	cachedInfo := gi.redisClient.Get(ctx, userIpKey).Val()
	if cachedInfo != "" {
		span.SetAttributes(attribute.Bool("user.ip.from-cache", true))
		log.Tracef("found geo ip info for [%s] in redis cache", userIp)
		ipInfo := &IpInfo{}
		if err := json.Unmarshal([]byte(cachedInfo), ipInfo); err == nil {
			return ipInfo, nil
		}
		log.Errorf("failed to unmarshal cached ip info for %s, will refetch", userIp)
	}
	span.SetAttributes(attribute.Bool("user.ip.from-cache", false))

	core, err := gi.fetcher.GetIPInfo(parsedIp)
	if err != nil {
		return nil, fmt.Errorf("get ip info for %s: %w", userIp, err)
	}

	ipInfo := &IpInfo{
		IP:          userIp,
		City:        core.City,
		Country:     core.CountryName,
		CountryCode: core.Country,
	}

	ipInfoBytes, err := json.Marshal(ipInfo)
	if err != nil {
		return ipInfo, nil
	}
	if err := gi.redisClient.Set(ctx, userIpKey, ipInfoBytes, 0).Err(); err != nil {
		log.Errorf("failed to cache ip info in redis for %s: %s", userIp, err)
	}

	return ipInfo, nil
}
