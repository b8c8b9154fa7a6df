package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/logger"
)

var markupPattern = regexp.MustCompile(`(?i)(<\s*script|<\s*iframe|<\s*/?\s*[a-z]+[^>]*>|javascript:|on(error|load|click)\s*=)`)

var ErrInvalidRequest = errors.New("invalid request")

type Config struct {
	MaxNames      int
	MaxNameLength int
	MaxTextLength int
	Logger        *zap.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxNames == 0 {
		cfg.MaxNames = 50
	}
	if cfg.MaxNameLength == 0 {
		cfg.MaxNameLength = 200
	}
	if cfg.MaxTextLength == 0 {
		cfg.MaxTextLength = 20000
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	return cfg
}

// ValidateNames bounds a name batch. Per-name normalization problems are not
// checked here; the resolver reports those individually.
func ValidateNames(cfg Config, names []string) error {
	cfg = cfg.withDefaults()

	if len(names) == 0 {
		return fmt.Errorf("%w: names is required", ErrInvalidRequest)
	}
	if len(names) > cfg.MaxNames {
		return fmt.Errorf("%w: at most %d names per request", ErrInvalidRequest, cfg.MaxNames)
	}
	for i, n := range names {
		if utf8.RuneCountInString(n) > cfg.MaxNameLength {
			return fmt.Errorf("%w: name %d exceeds %d characters", ErrInvalidRequest, i, cfg.MaxNameLength)
		}
		if markupPattern.MatchString(n) {
			return fmt.Errorf("%w: name %d contains markup", ErrInvalidRequest, i)
		}
	}
	return nil
}

func ValidateText(cfg Config, text string) error {
	cfg = cfg.withDefaults()

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(text) > cfg.MaxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidRequest, cfg.MaxTextLength)
	}
	if markupPattern.MatchString(text) {
		return fmt.Errorf("%w: text contains markup", ErrInvalidRequest)
	}
	return nil
}

// Middleware validates the JSON bodies of the name and text endpoints before
// they reach a handler.
func Middleware(cfg Config) fiber.Handler {
	cfg = cfg.withDefaults()

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		path := c.Path()
		var err error
		switch {
		case strings.HasSuffix(path, "/drugs/resolve"), strings.HasSuffix(path, "/interactions/check"):
			var req struct {
				Names []string `json:"names"`
			}
			if perr := c.BodyParser(&req); perr != nil {
				return reject(c, "Invalid JSON format")
			}
			err = ValidateNames(cfg, req.Names)
		case strings.HasSuffix(path, "/interactions/scan"):
			var req struct {
				Text string `json:"text"`
			}
			if perr := c.BodyParser(&req); perr != nil {
				return reject(c, "Invalid JSON format")
			}
			err = ValidateText(cfg, req.Text)
		default:
			return c.Next()
		}

		if err != nil {
			cfg.Logger.Warn("Request failed validation",
				zap.String("ip", c.IP()),
				zap.String("path", path),
				zap.Error(err),
			)
			return reject(c, err.Error())
		}

		return c.Next()
	}
}

func reject(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
