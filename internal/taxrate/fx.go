package taxrate

import (
	"github.com/smallbiznis/regi/internal/taxrate/repository"
	"github.com/smallbiznis/regi/internal/taxrate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxrate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
