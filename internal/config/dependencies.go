package config

import (
	"github.com/go-playground/validator/v10"
)

// Validate is the shared request-payload validator.
var Validate = validator.New()
