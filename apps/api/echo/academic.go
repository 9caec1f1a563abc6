package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/academic"
)

type academicApi struct {
	srv *Server
}

func (api academicApi) svc() academic.Service {
	return api.srv.deps.AcademicSvc
}

// Courses

func (api academicApi) queryCourses(ctx echo.Context) error {
	filter := new(academic.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc().QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api academicApi) createCourse(ctx echo.Context) error {
	var data academic.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	course, err := api.svc().CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api academicApi) course(ctx echo.Context) (academic.Course, error) {
	id, err := paramID(ctx)
	if err != nil {
		return academic.Course{}, err
	}
	course, err := api.svc().GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return academic.Course{}, errors.Wrap(err, "finding course by ID")
	}
	return course, nil
}

func (api academicApi) retrieveCourse(ctx echo.Context) error {
	course, err := api.course(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api academicApi) updateCourse(ctx echo.Context) error {
	course, err := api.course(ctx)
	if err != nil {
		return err
	}

	var data academic.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	if course, err = api.svc().UpdateCourse(ctx.Request().Context(), course, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api academicApi) destroyCourse(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc().DeleteCourse(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sessions

func (api academicApi) querySessions(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc().QuerySessions(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api academicApi) createSession(ctx echo.Context) error {
	var data academic.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sess, err := api.svc().CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api academicApi) session(ctx echo.Context) (academic.Session, error) {
	id, err := paramID(ctx)
	if err != nil {
		return academic.Session{}, err
	}
	sess, err := api.svc().GetSession(ctx.Request().Context(), id)
	if err != nil {
		return academic.Session{}, errors.Wrap(err, "finding session by ID")
	}
	return sess, nil
}

func (api academicApi) retrieveSession(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api academicApi) updateSession(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}

	var data academic.UpdateSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	if sess, err = api.svc().UpdateSession(ctx.Request().Context(), sess, data); err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api academicApi) destroySession(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc().DeleteSession(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api academicApi) querySubjects(ctx echo.Context) error {
	filter := new(academic.SubjectFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Subject{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.svc().QuerySubjects(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	subj, err := api.svc().CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api academicApi) subject(ctx echo.Context) (academic.Subject, error) {
	id, err := paramID(ctx)
	if err != nil {
		return academic.Subject{}, err
	}
	subj, err := api.svc().GetSubject(ctx.Request().Context(), id)
	if err != nil {
		return academic.Subject{}, errors.Wrap(err, "finding subject by ID")
	}
	return subj, nil
}

func (api academicApi) retrieveSubject(ctx echo.Context) error {
	subj, err := api.subject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api academicApi) updateSubject(ctx echo.Context) error {
	subj, err := api.subject(ctx)
	if err != nil {
		return err
	}

	var data academic.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(subj, api.srv.deps.Validate); err != nil {
		return err
	}

	if subj, err = api.svc().UpdateSubject(ctx.Request().Context(), subj, data); err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api academicApi) destroySubject(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc().DeleteSubject(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
