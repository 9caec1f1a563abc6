package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/account"
)

type accountApi struct {
	srv *Server
}

type (
	accountQuery struct {
		Search      string         `query:"search"`
		Roles       []account.Role `query:"role"`
		CreatedFrom string         `query:"created_from"`
		CreatedTo   string         `query:"created_to"`
	}

	AccountResponse struct {
		Account account.Account `json:"account"`
		Profile account.Profile `json:"profile"`
	}
)

// filter converts the query to an account.QueryFilter. CreatedTo includes the whole day.
func (aq accountQuery) filter() (*account.QueryFilter, error) {
	from, err := parseDate("created_from", aq.CreatedFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("created_to", aq.CreatedTo)
	if err != nil {
		return nil, err
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	filter := &account.QueryFilter{
		Search:      aq.Search,
		Roles:       aq.Roles,
		CreatedFrom: from,
		CreatedTo:   to,
	}
	filter.Clean()
	return filter, nil
}

func (api accountApi) query(ctx echo.Context) error {
	var query accountQuery
	if err := ctx.Bind(&query); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter, err := query.filter()
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accounts, err := api.srv.deps.AccountSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accounts == nil {
		accounts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (api accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.srv.deps.Validate, api.srv.deps.AccountSvc); err != nil {
		return err
	}

	acc, prof, err := api.srv.deps.AccountSvc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, AccountResponse{Account: acc, Profile: prof})
}

// object returns the Account designated by the `:id` path param.
func (api accountApi) object(ctx echo.Context) (account.Account, error) {
	id, err := paramID(ctx)
	if err != nil {
		return account.Account{}, err
	}
	acc, err := api.srv.deps.AccountSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	return acc, nil
}

func (api accountApi) retrieve(ctx echo.Context) error {
	acc, err := api.object(ctx)
	if err != nil {
		return err
	}
	prof, err := api.srv.deps.AccountSvc.ProfileOf(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, AccountResponse{Account: acc, Profile: prof})
}

func (api accountApi) update(ctx echo.Context) error {
	acc, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data account.UpdateAccount
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}
	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, acc, api.srv.deps.Validate, api.srv.deps.AccountSvc); err != nil {
		return err
	}

	acc, prof, err := api.srv.deps.AccountSvc.Update(reqCtx, acc, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, AccountResponse{Account: acc, Profile: prof})
}

func (api accountApi) destroy(ctx echo.Context) error {
	acc, err := api.object(ctx)
	if err != nil {
		return err
	}

	// admins cannot delete themselves
	ctxAcc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if acc.ID == ctxAcc.ID {
		return errHttpForbidden
	}

	if err = api.srv.deps.AccountSvc.Delete(ctx.Request().Context(), acc.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}
