// interceptors предоставляет цепочку перехватчиков исходящих HTTP-запросов
// REST-клиента: метаданные, таймаут, логирование, метрики, ограничение частоты.
package interceptors

import "net/http"

// Invoker выполняет запрос; в конце цепочки — http.Client.Do.
type Invoker func(req *http.Request) (*http.Response, error)

// Interceptor оборачивает вызов next. Контекст берётся из req.Context();
// чтобы передать дальше изменённый контекст — req.WithContext(ctx).
type Interceptor func(req *http.Request, next Invoker) (*http.Response, error)

// Chain собирает цепочку: первый перехватчик — внешний.
func Chain(final Invoker, ics ...Interceptor) Invoker {
	inv := final
	for i := len(ics) - 1; i >= 0; i-- {
		ic, next := ics[i], inv
		if ic == nil {
			continue
		}
		inv = func(req *http.Request) (*http.Response, error) {
			return ic(req, next)
		}
	}

	return inv
}
