package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) *AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(err, KindTool, http.StatusNotFound, RedisNotFoundMessage)
	}

	return New(err, KindTool, http.StatusBadGateway, RedisErrorMessage)
}
