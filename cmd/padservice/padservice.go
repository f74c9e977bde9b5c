/* Copyright 2023 The Proofpad Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main serves one proofpad session over WebSocket, with an
// optional MQTT coupling for remote observers.
package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"

	"github.com/proofpad/proofpad/conf"
	"github.com/proofpad/proofpad/couplings"
	"github.com/proofpad/proofpad/prover"
	"github.com/proofpad/proofpad/service"
	"github.com/proofpad/proofpad/session"
)

func main() {
	var (
		confFilename = flag.String("c", "", "configuration filename")
		addr         = flag.String("a", "", "listen address (overrides configuration)")
		offline      = flag.Bool("offline", false, "use a fake prover")
	)
	flag.Parse()

	c := conf.Default()
	if *confFilename != "" {
		var err error
		if c, err = conf.Load(*confFilename); err != nil {
			log.Fatal(err)
		}
	}
	if *addr != "" {
		c.Service.Addr = *addr
	}

	var transport prover.Transport
	if *offline {
		transport = prover.NewFake(nil)
	} else {
		transport = prover.NewProcess(c.Prover.Command...)
	}

	s, err := session.New(c, transport)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer s.Stop(ctx)

	svc := service.NewService(s)

	if len(c.Service.Docs) > 0 {
		docs := make(map[string]service.Doc, len(c.Service.Docs))
		for _, d := range c.Service.Docs {
			bs, err := ioutil.ReadFile(d.File)
			if err != nil {
				log.Fatal(err)
			}
			docs[d.Name] = service.Doc{Title: d.Title, Body: string(bs)}
		}
		svc.Docs = docs
	}

	var mq *couplings.MQTT
	if c.MQTT.Broker != "" {
		mq = couplings.NewMQTT(c.MQTT.Broker, c.MQTT.ClientID, c.MQTT.Topic)
		if err := mq.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer mq.Stop(ctx)

		go func() {
			for action := range mq.Incoming() {
				if _, err := s.Apply(ctx, action); err != nil {
					log.Printf("mqtt action: %s", err)
				}
			}
		}()
	}

	s.SetPublisher(func(event interface{}) {
		svc.Publish(event)
		if mq != nil {
			if err := mq.Publish(ctx, event); err != nil {
				log.Printf("mqtt publish: %s", err)
			}
		}
	})

	go func() {
		for f := range s.Failures() {
			log.Printf("request %s abandoned after %d trials: %s", f.Task, f.Trials, f.Err)
		}
	}()

	if err := svc.Serve(ctx, c.Service.Addr); err != nil {
		log.Fatal(err)
	}
}
