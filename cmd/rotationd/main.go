// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// rotationd serves the NSC-A1 rotation stage over HTTP so the whole lab
// network can command it without sharing the serial port.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/lib/find"
	"github.com/photonlab/hardware/rotation"
)

func main() {
	// Missing .env is fine; the environment may be set by systemd.
	_ = godotenv.Load()

	device := os.Getenv("ROTATION_STAGE_DEVICE")
	if device == "" {
		// With one USB serial device plugged in, use it.
		found, err := find.Find(nil)
		if err != nil {
			logrus.WithError(err).Warn("autodetect failed, falling back to /dev/ttyUSB0")
			found = "/dev/ttyUSB0"
		}
		device = found
	}
	listen := os.Getenv("ROTATION_STAGE_LISTEN")
	if listen == "" {
		listen = ":8080"
	}

	stage, err := rotation.Dial(device)
	if err != nil {
		logrus.WithError(err).Fatal("opening rotation stage")
	}
	defer stage.Close()

	if id, err := stage.Identify(); err == nil {
		logrus.WithField("id", id).Info("rotation stage connected")
	}

	srv := rotation.NewServer(stage)
	logrus.WithFields(logrus.Fields{
		"device": device,
		"listen": listen,
	}).Info("rotationd up")
	if err := srv.Router().Run(listen); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
