package config

const (
	EnvPrefix = "imagevault"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
