package main

import (
	"context"
	"time"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/user"
)

// addStaff updates or creates a staff account.
func (cli *commandLine) addStaff(email, name, department, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	department = core.CleanString(department)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	usr.Name = name
	usr.Department = department
	usr.Role = user.RoleStaff
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
