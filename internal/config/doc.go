// Package config loads and validates job definitions: the TOML file that
// describes a Phaser run as an ordered phase list plus output-parser
// selection.
package config
