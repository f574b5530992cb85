package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "catalog-browser"

	// DefaultFilename 실행 인자로 경로가 주어지지 않았을 때 읽는 설정 파일명입니다.
	DefaultFilename = AppName + ".json"

	// DefaultEnvFilename 환경 변수 적용 전에 읽어 들이는 dotenv 파일명입니다. 없으면 건너뜁니다.
	DefaultEnvFilename = ".env"

	// EnvPrefix 설정을 덮어쓰는 환경 변수의 접두사입니다.
	// 예: CATALOG_PRODUCT_API__TIMEOUT=3s -> product_api.timeout
	EnvPrefix = "CATALOG_"
)

// ViewMode 저장소 백엔드 종류
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	// Env 실행 환경 (development | production). 로그 프로필 선택에 사용됩니다.
	Env        string           `json:"env" validate:"oneof=development production"`
	Debug      bool             `json:"debug"`
	HTTPServer HTTPServerConfig `json:"http_server"`
	ProductAPI ProductAPIConfig `json:"product_api"`
	Catalog    CatalogConfig    `json:"catalog"`
	Session    SessionConfig    `json:"session"`
	ViewMode   ViewModeConfig   `json:"view_mode"`
}

// HTTPServerConfig 세션 API를 제공하는 웹 서버 설정
type HTTPServerConfig struct {
	ListenPort int `json:"listen_port" validate:"min=1,max=65535"`

	// FirstPageWait GET /product-list가 첫 페이지 응답을 기다리는 최대 시간
	FirstPageWait time.Duration `json:"first_page_wait" validate:"gt=0"`

	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig 클라이언트 IP별 요청 속도 제한 설정
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"required_if=Enabled true,gte=0"`
	Burst             int     `json:"burst" validate:"required_if=Enabled true,gte=0"`
}

// CORSConfig 교차 출처 요청 허용 도메인 설정
type CORSConfig struct {
	AllowOrigins []string `json:"allow_origins" validate:"dive,cors_origin"`
}

// ProductAPIConfig 원격 상품 API 연동 설정
type ProductAPIConfig struct {
	BaseURL  string        `json:"base_url" validate:"required,base_url"`
	Timeout  time.Duration `json:"timeout" validate:"gt=0"`
	PageSize int           `json:"page_size" validate:"min=1,max=100"`

	// Select 응답 페이로드를 줄이기 위해 요청할 필드 목록 (비어 있으면 전체 필드)
	Select []string `json:"select"`

	Retry          RetryConfig          `json:"retry"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
}

// RetryConfig 일시적 장애에 대한 재시도 정책
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `json:"retry_delay" validate:"gt=0"`
}

// CircuitBreakerConfig 연속 실패 시 원격 API 호출을 일시 차단하는 정책
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	ConsecutiveFailures uint32        `json:"consecutive_failures" validate:"required_if=Enabled true"`
	OpenTimeout         time.Duration `json:"open_timeout" validate:"gte=0"`
}

// CatalogConfig 카탈로그 화면 동작 설정
type CatalogConfig struct {
	DebounceDelay time.Duration `json:"debounce_delay" validate:"gt=0"`

	// CacheTTL 현재 키가 아닌 상품 목록 캐시를 보관하는 시간 (뒤로 가기 시 즉시 표시)
	CacheTTL time.Duration `json:"cache_ttl" validate:"gte=0"`

	// RootMargin 스크롤 감시 영역 확장값 (CSS margin 표기)
	RootMargin string `json:"root_margin" validate:"required"`
}

// SessionConfig 브라우저 세션 수명 관리 설정
type SessionConfig struct {
	IdleTimeout time.Duration `json:"idle_timeout" validate:"gt=0"`
	SweepSpec   string        `json:"sweep_spec" validate:"required,cron_spec"`
	MaxSessions int           `json:"max_sessions" validate:"gte=0"`
}

// ViewModeConfig 보기 방식(grid/list) 선호도 저장소 설정
type ViewModeConfig struct {
	Storage string        `json:"storage" validate:"oneof=memory file redis"`
	TTL     time.Duration `json:"ttl" validate:"gt=0"`
	FileDir string        `json:"file_dir" validate:"required_if=Storage file"`
	Redis   RedisConfig   `json:"redis"`
}

// RedisConfig Redis 연결 정보
type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db" validate:"gte=0"`
	KeyPrefix string `json:"key_prefix"`
}

// Default 설정 파일과 환경 변수가 모두 비어 있을 때 적용되는 기본 설정을 반환합니다.
func Default() AppConfig {
	return AppConfig{
		Env: "development",
		HTTPServer: HTTPServerConfig{
			ListenPort:    8080,
			FirstPageWait: 3 * time.Second,
			RateLimit:     RateLimitConfig{Enabled: true, RequestsPerSecond: 20, Burst: 40},
			CORS:          CORSConfig{AllowOrigins: []string{"*"}},
		},
		ProductAPI: ProductAPIConfig{
			BaseURL:  "https://dummyjson.com",
			Timeout:  5 * time.Second,
			PageSize: 20,
			Retry:    RetryConfig{MaxRetries: 2, RetryDelay: 300 * time.Millisecond},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Catalog: CatalogConfig{
			DebounceDelay: 500 * time.Millisecond,
			CacheTTL:      5 * time.Minute,
			RootMargin:    "0px 0px 300px 0px",
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
			SweepSpec:   "@every 1m",
			MaxSessions: 10000,
		},
		ViewMode: ViewModeConfig{
			Storage: StorageMemory,
			TTL:     24 * time.Hour,
			FileDir: "data/view-mode",
			Redis:   RedisConfig{Addr: "localhost:6379", KeyPrefix: AppName + ":"},
		},
	}
}

// validate 설정 로드 직후 각 항목의 정합성을 검증합니다.
func (c *AppConfig) validate() error {
	if err := checkStruct(newValidator(), c); err != nil {
		return err
	}

	if err := c.HTTPServer.CORS.validate(); err != nil {
		return err
	}

	if c.ViewMode.Storage == StorageRedis && strings.TrimSpace(c.ViewMode.Redis.Addr) == "" {
		return apperrors.New(apperrors.InvalidInput, "Redis 저장소를 사용하려면 view_mode.redis.addr 설정이 필요합니다")
	}

	return nil
}

func (c *CORSConfig) validate() error {
	for _, origin := range c.AllowOrigins {
		if origin == "*" && len(c.AllowOrigins) > 1 {
			return apperrors.New(apperrors.InvalidInput, "와일드카드(*)는 다른 도메인과 함께 사용할 수 없습니다")
		}
	}
	return nil
}

// VerifyRecommendations 강제하지는 않지만 운영상 권장되지 않는 설정에 대한 경고 메시지를 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	if c.IsProduction() && c.Debug {
		warnings = append(warnings, "운영 환경에서 디버그 모드가 활성화되어 있습니다")
	}
	if c.HTTPServer.ListenPort < 1024 {
		warnings = append(warnings, fmt.Sprintf("시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다(port: %d). 관리자 권한이 필요할 수 있습니다", c.HTTPServer.ListenPort))
	}
	if c.ProductAPI.Timeout > 30*time.Second {
		warnings = append(warnings, fmt.Sprintf("상품 API 타임아웃(%s)이 너무 깁니다. 첫 페이지 로딩이 오래 멈춰 보일 수 있습니다", c.ProductAPI.Timeout))
	}
	if c.ViewMode.Storage == StorageMemory {
		warnings = append(warnings, "보기 방식 선호도가 메모리에만 저장됩니다. 재시작 시 초기화됩니다")
	}

	return warnings
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 설정 파일을 읽어 AppConfig를 생성합니다.
//
// 우선순위(낮음 → 높음): 기본값 → JSON 설정 파일 → .env 파일 → 환경 변수
// 설정 파일이 존재하지 않으면 기본값만으로 구성합니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	return load(filename, DefaultEnvFilename)
}

func load(filename, envFilename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값
	if err := k.Load(structs.Provider(Default(), "json"), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일
	if filename != "" {
		if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
			}
		}
	}

	// 3. .env 파일 (이미 설정된 프로세스 환경 변수는 덮어쓰지 않음)
	if envFilename != "" {
		if err := godotenv.Load(envFilename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("환경 파일 로드 중 오류가 발생했습니다: '%s'", envFilename))
		}
	}

	// 4. 환경 변수: 이중 언더스코어(__)를 계층 구분자(.)로 변환합니다.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	var appConfig AppConfig
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &appConfig,
		},
	}
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}

// envKeyToPath CATALOG_PRODUCT_API__TIMEOUT -> product_api.timeout
func envKeyToPath(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// IsProduction 운영 환경 여부를 반환합니다.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
