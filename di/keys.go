package di

import "reflect"

// CommandLineArgumentsKey names the []string singleton holding the arguments
// a process was started with.
const CommandLineArgumentsKey = "commandLineArguments"

// KeyNames lists the keys mainkit itself registers.
type KeyNames struct {
	CommandLineArguments string
	Config               string
	Logger               string
	Metrics              string
}

// Keys contains the well-known registration keys.
var Keys = KeyNames{
	CommandLineArguments: CommandLineArgumentsKey,
	Config:               "config",
	Logger:               "logger",
	Metrics:              "metrics",
}

// KeyOf returns the registration key conventionally used for type T, its Go
// type name (for example "*bootstrap.Main").
func KeyOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
