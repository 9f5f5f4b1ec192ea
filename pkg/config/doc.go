// Package config loads typed configuration structs from environment
// variables, reading a .env file first when one is present. Each struct
// type is parsed once and cached, so every component sees the same values.
package config
