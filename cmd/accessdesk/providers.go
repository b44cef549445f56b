package main

// Notifier providers register themselves with the notifier registry.
import (
	_ "github.com/Strob0t/AccessDesk/internal/adapter/slack"
)
