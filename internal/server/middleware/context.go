package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

// AppUser is the authenticated caller extracted from the bearer token.
type AppUser struct {
	Subject string
	Role    string
}

type App struct {
	Store store.Store
	Queue *amqp091.Channel
	Key   *keyfunc.Keyfunc
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{
				Context: c,
				App:     app,
			})
		}
	}
}
