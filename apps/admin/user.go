package main

import (
	"context"
	"fmt"
)

// addUser updates or creates a user, who can log in right away.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	usr, err := cli.usrSvc.UpdateOrCreate(context.Background(), name, email, role, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("%s user %s saved\n", usr.Role, usr.Email)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	return cli.usrSvc.ResetPassword(context.Background(), email, pwd)
}
