package item

import (
	"github.com/smallbiznis/regi/internal/item/repository"
	"github.com/smallbiznis/regi/internal/item/service"
	"go.uber.org/fx"
)

var Module = fx.Module("item.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
