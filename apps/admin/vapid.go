package main

import (
	"fmt"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

// genVapid prints a fresh key pair in env file format.
func (cli *commandLine) genVapid() error {
	pub, priv, err := push.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}

func (cli *commandLine) publicKey(privateKey string) error {
	pub, err := push.PublicKeyFromPrivate(core.CleanString(privateKey))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, pub)
	return nil
}
