package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses a comma separated list of fields, "-" prefixed for descending order. e.g: `?ordering=-published_at,title`
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SignUpResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}

	DeleteImageRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	DeleteImageResponse struct {
		Remaining int `json:"remaining"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}
