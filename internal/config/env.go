// Environment variable overrides
//
// Copyright (c) 2026  The weiqi-server contributors
//
// This file is part of weiqi-server.
//
// weiqi-server is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// weiqi-server is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with weiqi-server. If not, see
// <http://www.gnu.org/licenses/>

package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv layers the environment variables named in spec.md §6 on top
// of whatever the TOML file or defaults produced. PORT and the Redis
// variables are the deployment-time knobs; REDIS_URL/REDIS_ADDR take
// priority over separately parsed REDIS_HOST/REDIS_PORT, since go-redis
// wants a single address string.
func applyEnv(c *Conf) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Proto.Port = uint(port)
			c.Web.Port = uint(port)
		}
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisAddr = v
	} else {
		host := os.Getenv("REDIS_HOST")
		port := os.Getenv("REDIS_PORT")
		if host != "" || port != "" {
			if host == "" {
				host = "localhost"
			}
			if port == "" {
				port = "6379"
			}
			c.Store.RedisAddr = fmt.Sprintf("%s:%s", host, port)
		}
	}

	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.RedisPassword = v
	}

	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Web.MetricsAddr = v
	}
}
