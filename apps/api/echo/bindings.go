package echoapi

import (
	"github.com/trezcool/lalamika/core/user"
)

type (
	LoginResponse struct {
		Token string         `json:"token"`
		User  user.Principal `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)
